package enrich

import (
	"context"

	"github.com/meridiancode/meridian/internal/graph"
)

// SemanticRelationship is a relationship type the AI provider can infer.
type SemanticRelationship int

const (
	RelCalls SemanticRelationship = iota
	RelDependsOn
	RelImplements
	RelExtends
	RelTestedBy
	RelUses
	RelConfigures
	RelHandlesRoute
	RelMigrationDepends
	RelSemanticReference
)

var relationshipNames = [...]string{
	"Calls", "DependsOn", "Implements", "Extends", "TestedBy", "Uses",
	"Configures", "HandlesRoute", "MigrationDepends", "SemanticReference",
}

func (r SemanticRelationship) String() string {
	if int(r) < 0 || int(r) >= len(relationshipNames) {
		return "SemanticReference"
	}
	return relationshipNames[r]
}

// EdgeKind maps an inferred relationship to the structural edge kind it
// produces once accepted.
func (r SemanticRelationship) EdgeKind() graph.EdgeKind {
	switch r {
	case RelCalls:
		return graph.EdgeCalls
	case RelDependsOn:
		return graph.EdgeTypeReference
	case RelImplements:
		return graph.EdgeImplements
	case RelExtends:
		return graph.EdgeInherits
	case RelTestedBy:
		return graph.EdgeSemanticReference
	case RelUses:
		return graph.EdgeImports
	case RelConfigures:
		return graph.EdgeConfiguresArgument
	case RelHandlesRoute:
		return graph.EdgeRouteHandler
	case RelMigrationDepends:
		return graph.EdgeMigrationTarget
	default:
		return graph.EdgeSemanticReference
	}
}

// AnalysisContext is the surrounding information handed to the provider
// alongside the source node.
type AnalysisContext struct {
	FilePath          string
	Language          string
	EnclosingContext  []string
	Imports           []string
	ProjectContext    map[string]string
}

// AnalysisRequest asks a provider to infer relationships between one source
// node and a set of candidate targets.
type AnalysisRequest struct {
	SourceNode       graph.GraphNode
	CandidateNodes   []graph.GraphNode
	Context          AnalysisContext
	RelationshipTypes []SemanticRelationship
}

// InferredRelationship is one relationship a provider proposed.
type InferredRelationship struct {
	SourceID     graph.NodeId
	TargetID     graph.NodeId
	Relationship SemanticRelationship
	Confidence   float64
	Explanation  string
	LineRef      int
}

// AnalysisResult is what a provider call returns.
type AnalysisResult struct {
	Relationships []InferredRelationship
	Explanation   string
	TokensUsed    int
}

// Provider abstracts the LLM backend used for semantic analysis. Concrete
// implementations: openai (sashabaranov/go-openai), anthropic, local.
type Provider interface {
	AnalyzeSemanticRelationships(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
	Name() string
}
