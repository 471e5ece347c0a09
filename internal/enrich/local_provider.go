package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridiancode/meridian/internal/graph"
)

// LocalProvider infers semantic relationships with naming heuristics only —
// no network call, no API key. It trades analysis quality for availability
// when operators want enrichment without external dependencies.
type LocalProvider struct{}

// NewLocalProvider returns a Provider that never leaves the machine.
func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) AnalyzeSemanticRelationships(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	var rels []InferredRelationship

	for _, candidate := range req.CandidateNodes {
		if candidate.ID == req.SourceNode.ID {
			continue
		}

		if (req.SourceNode.Kind == graph.KindFunction || req.SourceNode.Kind == graph.KindMethod) &&
			(candidate.Kind == graph.KindFunction || candidate.Kind == graph.KindMethod) &&
			strings.HasPrefix(candidate.Name, req.SourceNode.Name) && candidate.Name != req.SourceNode.Name {
			rels = append(rels, InferredRelationship{
				SourceID:     req.SourceNode.ID,
				TargetID:     candidate.ID,
				Relationship: RelCalls,
				Confidence:   0.6,
				Explanation:  fmt.Sprintf("function name suggests it calls %s", candidate.Name),
			})
		}

		if candidate.Name != "" && strings.Contains(req.SourceNode.QualifiedName, candidate.Name) && candidate.ID != req.SourceNode.ID {
			rels = append(rels, InferredRelationship{
				SourceID:     req.SourceNode.ID,
				TargetID:     candidate.ID,
				Relationship: RelDependsOn,
				Confidence:   0.5,
				Explanation:  fmt.Sprintf("source references %s in its qualified name", candidate.Name),
			})
		}
	}

	return &AnalysisResult{
		Relationships: rels,
		Explanation:   "heuristic-based analysis without AI",
		TokensUsed:    0,
	}, nil
}
