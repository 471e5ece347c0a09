package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meridiancode/meridian/internal/graph"
)

const (
	maxRetries  = 5
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 30 * time.Second
)

// OpenAIProvider infers semantic relationships via chat completion,
// constraining the model to a JSON relationship list it can parse back into
// InferredRelationship values.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider returns a Provider backed by the OpenAI chat API.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatRelationship struct {
	TargetName   string  `json:"target_name"`
	Relationship string  `json:"relationship"`
	Confidence   float64 `json:"confidence"`
	Explanation  string  `json:"explanation"`
	Line         int     `json:"line"`
}

type chatResponse struct {
	Relationships []chatRelationship `json:"relationships"`
	Explanation   string             `json:"explanation"`
}

func (p *OpenAIProvider) AnalyzeSemanticRelationships(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	prompt := buildPrompt(req)

	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err = p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
			Temperature:    0,
		})
		if err == nil {
			break
		}
		if !isRetryable(err) {
			return nil, fmt.Errorf("enrich: chat completion: %w", err)
		}
		backoff := calcBackoff(attempt)
		slog.Warn("enrich: retrying chat completion", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("enrich: chat completion after %d retries: %w", maxRetries, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("enrich: empty completion response")
	}

	var parsed chatResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("enrich: parsing model response: %w", err)
	}

	byName := make(map[string]graph.NodeId, len(req.CandidateNodes))
	for _, n := range req.CandidateNodes {
		byName[n.QualifiedName] = n.ID
	}

	var rels []InferredRelationship
	for _, r := range parsed.Relationships {
		targetID, ok := byName[r.TargetName]
		if !ok {
			continue
		}
		rels = append(rels, InferredRelationship{
			SourceID:     req.SourceNode.ID,
			TargetID:     targetID,
			Relationship: parseRelationship(r.Relationship),
			Confidence:   r.Confidence,
			Explanation:  r.Explanation,
			LineRef:      r.Line,
		})
	}

	return &AnalysisResult{
		Relationships: rels,
		Explanation:   parsed.Explanation,
		TokensUsed:    resp.Usage.TotalTokens,
	}, nil
}

const systemPrompt = "You analyze source code relationships between a source symbol and candidate " +
	"target symbols in the same codebase. Respond only with a JSON object: " +
	`{"relationships":[{"target_name":"...","relationship":"Calls|DependsOn|Implements|Extends|` +
	`TestedBy|Uses|Configures|HandlesRoute|MigrationDepends|SemanticReference","confidence":0.0,` +
	`"explanation":"...","line":0}],"explanation":"..."}`

func buildPrompt(req AnalysisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source (%s) %s at %s:\n", req.SourceNode.Kind, req.SourceNode.QualifiedName, req.Context.FilePath)
	if len(req.Context.Imports) > 0 {
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(req.Context.Imports, ", "))
	}
	b.WriteString("Candidate targets:\n")
	for _, n := range req.CandidateNodes {
		fmt.Fprintf(&b, "- %s (%s) in %s\n", n.QualifiedName, n.Kind, n.FilePath)
	}
	b.WriteString("Relationship types to consider: ")
	for i, rt := range req.RelationshipTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(rt.String())
	}
	return b.String()
}

func parseRelationship(s string) SemanticRelationship {
	for i, name := range relationshipNames {
		if name == s {
			return SemanticRelationship(i)
		}
	}
	return RelSemanticReference
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

func calcBackoff(attempt int) time.Duration {
	backoff := baseBackoff * time.Duration(1<<uint(attempt))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(float64(backoff) * (0.75 + rand.Float64()*0.5))
	return jitter
}
