// Package enrich runs optional AI-backed semantic relationship inference
// over newly extracted nodes, subject to a token budget, and folds accepted
// relationships back into the graph as AI-sourced edges.
package enrich

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/errgroup"

	"github.com/meridiancode/meridian/internal/graph"
)

// Broadcaster receives the additions-only diff produced by an accepted
// enrichment pass and returns it with its assigned sequence number. Sequence
// allocation happens on the broadcaster side (atomically with delivery) so
// that concurrent enrichment workers and the structural Updater never race
// over sequence numbers.
type Broadcaster interface {
	Broadcast(graph.GraphDiff) graph.GraphDiff
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(d graph.GraphDiff) graph.GraphDiff { return d }

// Config configures an Enricher.
type Config struct {
	TotalTokens int
	Model       string
	BatchSize   int
	APIDelay    time.Duration
	CacheTTL    time.Duration
	AutoAccept  float64
}

// Enricher schedules background semantic analysis for newly added
// Function/Method nodes and applies accepted relationships to the store.
type Enricher struct {
	store       *graph.Store
	provider    Provider
	broadcaster Broadcaster

	budget *Budget
	budgetMu sync.Mutex

	cache *Cache

	encoding *tiktoken.Tiktoken

	batchSize int
	apiDelay  time.Duration

	jobs chan enrichJob

	wg sync.WaitGroup
}

type enrichJob struct {
	path  string
	nodes []graph.GraphNode
}

// New constructs an Enricher. provider may be nil, in which case the
// Enricher is inert: Enqueue drops every job without queueing it, the
// configuration the caller wired up otherwise being unreachable without a
// provider/API key (§4.7's "disabled when no provider/API key is
// configured").
func New(store *graph.Store, provider Provider, broadcaster Broadcaster, cfg Config) *Enricher {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.APIDelay <= 0 {
		cfg.APIDelay = time.Second
	}
	if cfg.AutoAccept <= 0 {
		cfg.AutoAccept = 0.8
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		slog.Warn("enrich: model unknown to tiktoken, falling back to length heuristic", "model", model, "error", err)
		enc = nil
	}

	e := &Enricher{
		store:       store,
		provider:    provider,
		broadcaster: broadcaster,
		budget:      NewBudget(cfg.TotalTokens),
		cache:       NewCache(cfg.CacheTTL),
		encoding:    enc,
		batchSize:   cfg.BatchSize,
		apiDelay:    cfg.APIDelay,
		jobs:        make(chan enrichJob, 256),
	}
	e.budget.AutoAcceptThreshold = cfg.AutoAccept
	return e
}

// Run drains the job queue until ctx is cancelled, dispatching up to
// batchSize requests concurrently with at least apiDelay between dispatches
// per worker.
func (e *Enricher) Run(ctx context.Context) {
	e.wg.Add(1)
	defer e.wg.Done()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchSize)

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return
		case job, ok := <-e.jobs:
			if !ok {
				g.Wait()
				return
			}
			g.Go(func() error {
				e.process(gctx, job)
				time.Sleep(e.apiDelay)
				return nil
			})
		}
	}
}

// Enqueue schedules path's newly added nodes for background analysis.
// Non-blocking: a full queue drops the job and logs, since enrichment is
// advisory and must never slow down structural updates.
func (e *Enricher) Enqueue(path string, nodes []graph.GraphNode) {
	if e.provider == nil || len(nodes) == 0 {
		return
	}
	select {
	case e.jobs <- enrichJob{path: path, nodes: nodes}:
	default:
		slog.Warn("enrich: job queue full, dropping enrichment request", "path", path)
	}
}

// Close stops accepting work and waits for in-flight dispatches to settle.
func (e *Enricher) Close() {
	close(e.jobs)
	e.wg.Wait()
}

// BudgetStatus reports the current token budget state for health/log
// surfaces.
func (e *Enricher) BudgetStatus() (used, total int, level BudgetWarning) {
	e.budgetMu.Lock()
	defer e.budgetMu.Unlock()
	return e.budget.TokensUsed, e.budget.TotalTokens, e.budget.WarningLevel()
}

func (e *Enricher) process(ctx context.Context, job enrichJob) {
	candidates := e.candidatesFor(job)
	for _, node := range job.nodes {
		if node.Kind != graph.KindFunction && node.Kind != graph.KindMethod {
			continue
		}
		e.analyzeNode(ctx, node, candidates, job.path)
	}
}

func (e *Enricher) candidatesFor(job enrichJob) []graph.GraphNode {
	var candidates []graph.GraphNode
	for _, n := range job.nodes {
		if n.Kind == graph.KindFunction || n.Kind == graph.KindMethod || n.Kind == graph.KindClass || n.Kind == graph.KindStruct || n.Kind == graph.KindInterface {
			candidates = append(candidates, n)
		}
	}
	e.budgetMu.Lock()
	budgetLeft := e.budget.Remaining()
	e.budgetMu.Unlock()
	if budgetLeft > 20000 {
		for _, kind := range []graph.NodeKind{graph.KindFunction, graph.KindMethod, graph.KindClass, graph.KindStruct, graph.KindInterface} {
			candidates = append(candidates, e.store.NodesOfKind(kind)...)
		}
	}
	return candidates
}

func (e *Enricher) analyzeNode(ctx context.Context, node graph.GraphNode, candidates []graph.GraphNode, path string) {
	fileHash := contentHash(node)

	if cached, ok := e.cache.Get(node.ID, fileHash); ok {
		e.applyRelationships(node, cached)
		return
	}

	req := AnalysisRequest{
		SourceNode:     node,
		CandidateNodes: candidates,
		Context: AnalysisContext{
			FilePath: path,
			Language: node.Language,
		},
		RelationshipTypes: []SemanticRelationship{
			RelCalls, RelDependsOn, RelUses, RelConfigures, RelImplements,
			RelExtends, RelTestedBy, RelHandlesRoute, RelMigrationDepends, RelSemanticReference,
		},
	}

	estimate := e.estimateTokens(req)

	e.budgetMu.Lock()
	if !e.budget.HasBudget(estimate) {
		e.budgetMu.Unlock()
		return
	}
	e.budgetMu.Unlock()

	result, err := e.provider.AnalyzeSemanticRelationships(ctx, req)
	if err != nil {
		slog.Warn("enrich: analysis failed", "node", node.QualifiedName, "error", err)
		return
	}

	e.budgetMu.Lock()
	used := result.TokensUsed
	if used == 0 {
		used = estimate
	}
	e.budget.UseTokens(used)
	e.budgetMu.Unlock()

	e.cache.Insert(node.ID, fileHash, result.Relationships)
	e.applyRelationships(node, result.Relationships)
}

func (e *Enricher) estimateTokens(req AnalysisRequest) int {
	prompt := buildPrompt(req)
	if e.encoding != nil {
		return len(e.encoding.Encode(prompt, nil, nil)) + 500
	}
	return EstimateTokens(len(prompt))
}

// applyRelationships folds accepted relationships into the graph and
// broadcasts an additions-only diff, ordered after the structural update
// that produced the source node since it carries a later sequence number.
func (e *Enricher) applyRelationships(source graph.GraphNode, rels []InferredRelationship) {
	var added []graph.GraphEdge
	for _, r := range rels {
		if !e.budget.ShouldAutoAccept(r.Confidence) {
			continue
		}
		id, err := e.store.AddEdge(graph.GraphEdge{
			Source:     source.ID,
			Target:     r.TargetID,
			Kind:       r.Relationship.EdgeKind(),
			EdgeSource: graph.SourceAI,
			Confidence: r.Confidence,
			Label:      r.Explanation,
			FilePath:   source.FilePath,
			Line:       r.LineRef,
		})
		if err != nil {
			continue
		}
		edge, _ := e.store.Edge(id)
		added = append(added, edge)
	}
	if len(added) == 0 {
		return
	}
	e.broadcaster.Broadcast(graph.GraphDiff{AddedEdges: added})
}

func contentHash(node graph.GraphNode) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", node.QualifiedName, node.LineStart, node.LineEnd)))
	return fmt.Sprintf("%x", h)
}
