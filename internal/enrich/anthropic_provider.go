package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/meridiancode/meridian/internal/graph"
)

// AnthropicProvider infers semantic relationships via the Claude Messages
// API, using the same JSON-constrained relationship-list prompt shape as
// OpenAIProvider.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider returns a Provider backed by the Anthropic Messages
// API. model defaults to Claude 3.5 Haiku, matching the speed/cost tradeoff a
// background enrichment pass wants.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) AnalyzeSemanticRelationships(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	prompt := buildPrompt(req)

	var msg *anthropic.Message
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		msg, err = p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     p.model,
			MaxTokens: 2000,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err == nil {
			break
		}
		backoff := calcBackoff(attempt)
		slog.Warn("enrich: retrying anthropic request", "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("enrich: anthropic messages.new after %d retries: %w", maxRetries, err)
	}
	if len(msg.Content) == 0 {
		return nil, fmt.Errorf("enrich: empty anthropic response")
	}

	var parsed chatResponse
	if err := json.Unmarshal([]byte(msg.Content[0].Text), &parsed); err != nil {
		return nil, fmt.Errorf("enrich: parsing anthropic response: %w", err)
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
		TokensUsed:    int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
