// Package updater is the incremental-update orchestration core: it turns a
// single file-change event into a graph mutation, a diff, and (optionally)
// a scheduled AI enrichment pass.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/meridiancode/meridian/internal/extract"
	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
	"github.com/meridiancode/meridian/internal/symbols"
	"github.com/meridiancode/meridian/internal/watcher"
)

// Broadcaster receives every diff an update produces and returns it back
// with its assigned sequence number. Implemented by *broadcast.Hub; accepted
// as an interface to keep this package decoupled from the WebSocket
// transport. Sequence allocation lives on the broadcaster side so that it
// happens atomically with delivery, even when the Updater and the AI
// Enricher broadcast concurrently from different goroutines.
type Broadcaster interface {
	Broadcast(graph.GraphDiff) graph.GraphDiff
}

// Enricher is handed newly added Function/Method nodes for background AI
// relationship inference. Implemented by *enrich.Enricher.
type Enricher interface {
	Enqueue(path string, nodes []graph.GraphNode)
}

// noopBroadcaster/noopEnricher let an Updater run standalone (e.g. in
// tests, or before the HTTP server and enricher are wired up).
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(d graph.GraphDiff) graph.GraphDiff { return d }

type noopEnricher struct{}

func (noopEnricher) Enqueue(string, []graph.GraphNode) {}

// Updater owns the per-file node/edge index and serializes updates to the
// same file while allowing unrelated files to update concurrently.
type Updater struct {
	store   *graph.Store
	symbols *symbols.Table
	pool    *parserpool.Pool

	broadcaster Broadcaster
	enricher    Enricher

	fileMu  sync.Mutex // guards fileLocks, fileNodes and fileEdges
	fileLocks map[string]*sync.Mutex
	fileNodes map[string][]graph.NodeId
	fileEdges map[string][]graph.EdgeId

	migMu           sync.Mutex // guards migrationsByDir
	migrationsByDir map[string][]string // directory -> sorted basenames of known migrations

	aliasMu sync.RWMutex
	aliases map[string]string // package import path/name -> repo-relative path prefix
}

// New constructs an Updater over store and symbols, parsing with pool.
// Broadcaster and enricher may be nil; a no-op stand-in is used instead.
func New(store *graph.Store, table *symbols.Table, pool *parserpool.Pool, b Broadcaster, e Enricher) *Updater {
	if b == nil {
		b = noopBroadcaster{}
	}
	if e == nil {
		e = noopEnricher{}
	}
	return &Updater{
		store:           store,
		symbols:         table,
		pool:            pool,
		broadcaster:     b,
		enricher:        e,
		fileLocks:       make(map[string]*sync.Mutex),
		fileNodes:       make(map[string][]graph.NodeId),
		fileEdges:       make(map[string][]graph.EdgeId),
		migrationsByDir: make(map[string][]string),
		aliases:         make(map[string]string),
	}
}

// SetEnricher wires an Enricher in after construction, for callers that
// build the Enricher and Updater in either order.
func (u *Updater) SetEnricher(e Enricher) {
	if e == nil {
		e = noopEnricher{}
	}
	u.enricher = e
}

// SetAliases replaces the package alias map used for cross-file import
// resolution (§4.10's WorkspaceRoot/Package feed).
func (u *Updater) SetAliases(aliases map[string]string) {
	u.aliasMu.Lock()
	defer u.aliasMu.Unlock()
	u.aliases = make(map[string]string, len(aliases))
	for k, v := range aliases {
		u.aliases[k] = v
	}
}

func (u *Updater) lockFor(path string) *sync.Mutex {
	u.fileMu.Lock()
	defer u.fileMu.Unlock()
	m, ok := u.fileLocks[path]
	if !ok {
		m = &sync.Mutex{}
		u.fileLocks[path] = m
	}
	return m
}

// Apply runs the per-file update protocol for one event. Per-path updates
// are serialized against each other; unrelated paths proceed concurrently.
func (u *Updater) Apply(ctx context.Context, path string, kind watcher.EventKind) error {
	lock := u.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if kind == watcher.Removed {
		u.removeMigrationEntry(path)
		diff := u.removeFile(path)
		u.broadcaster.Broadcast(diff)
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("updater: read failed, skipping update", "path", path, "error", err)
		return fmt.Errorf("updater: read %s: %w", path, err)
	}

	extractor := extract.For(path)
	if _, generic := extractor.(*extract.GenericExtractor); !generic && !utf8.Valid(content) {
		slog.Warn("updater: content is not valid UTF-8, preserving prior graph state", "path", path)
		return fmt.Errorf("updater: extract %s: content is not valid UTF-8", path)
	}
	result, err := extractor.Extract(ctx, u.pool, path, content)
	if err != nil {
		slog.Warn("updater: extraction failed, preserving prior graph state", "path", path, "error", err)
		return fmt.Errorf("updater: extract %s: %w", path, err)
	}

	diff := u.replaceFile(path, result)
	u.broadcaster.Broadcast(diff)

	if kind != watcher.Removed {
		u.enricher.Enqueue(path, diff.AddedNodes)
	}
	return nil
}

// removeFile retracts all of a file's nodes/edges and returns a
// removal-only diff. Must be called with the file's own lock held.
func (u *Updater) removeFile(path string) graph.GraphDiff {
	u.fileMu.Lock()
	oldNodes := u.fileNodes[path]
	oldEdges := u.fileEdges[path]
	delete(u.fileNodes, path)
	delete(u.fileEdges, path)
	u.fileMu.Unlock()

	for _, eid := range oldEdges {
		u.store.RemoveEdge(eid)
	}
	for _, nid := range oldNodes {
		u.store.RemoveNode(nid)
	}
	u.symbols.RemoveFile(path)

	return graph.GraphDiff{
		RemovedNodes: oldNodes,
		RemovedEdges: oldEdges,
	}
}

// replaceFile performs step 5 of the per-file update protocol: remove the
// file's old nodes/edges, insert the newly extracted ones, rewrite edge
// endpoints through a local placeholder map, and refresh the symbol table
// and per-file index. Must be called with the file's own lock held.
func (u *Updater) replaceFile(path string, result *extract.Result) graph.GraphDiff {
	u.fileMu.Lock()
	oldNodes := u.fileNodes[path]
	oldEdges := u.fileEdges[path]
	u.fileMu.Unlock()

	for _, eid := range oldEdges {
		u.store.RemoveEdge(eid)
	}
	for _, nid := range oldNodes {
		u.store.RemoveNode(nid)
	}
	u.symbols.RemoveFile(path)

	if extract.IsMigrationPath(path) {
		u.appendMigration(path, result)
	}

	// Ensure a File node exists as the Contains root for this path, since
	// extractors emit Contains edges sourced at the bare path string.
	fileNode := graph.GraphNode{
		Kind:          graph.KindFile,
		Name:          baseName(path),
		QualifiedName: path,
		FilePath:      path,
	}
	fileID := u.store.AddNode(fileNode)

	placeholder := make(map[string]graph.NodeId, len(result.Nodes)+1)
	placeholder[path] = fileID

	fileAdded, _ := u.store.Node(fileID)
	addedNodes := []graph.GraphNode{fileAdded}
	newNodeIDs := []graph.NodeId{fileID}

	for _, n := range result.Nodes {
		n.GraphNode.FilePath = path
		if n.LineStart > 0 && n.LineEnd >= n.LineStart {
			n.GraphNode.LOC = n.LineEnd - n.LineStart
		}
		id := u.store.AddNode(n.GraphNode)
		placeholder[n.QualifiedName] = id
		newNodeIDs = append(newNodeIDs, id)
		u.symbols.Insert(path, n.QualifiedName, id)
		added, _ := u.store.Node(id)
		addedNodes = append(addedNodes, added)
	}

	var addedEdges []graph.GraphEdge
	var newEdgeIDs []graph.EdgeId
	for _, e := range result.Edges {
		// Call, embed and heritage edges name an endpoint by the bare
		// identifier written in the source; try it as a symbol of this file.
		srcID, srcOK := placeholder[e.Source]
		if !srcOK {
			srcID, srcOK = placeholder[path+"::"+e.Source]
		}
		if !srcOK {
			srcID, srcOK = u.symbols.Lookup(e.Source)
		}
		tgtID, tgtOK := placeholder[e.Target]
		if !tgtOK {
			tgtID, tgtOK = placeholder[path+"::"+e.Target]
		}
		if !tgtOK {
			tgtID, tgtOK = u.resolveCrossFile(e.Target)
		}
		if !srcOK || !tgtOK {
			// Leave unresolved heuristic edges out of the graph; the
			// specifier remains available to a later re-extraction of
			// either endpoint's file. No partial edges are stored.
			continue
		}
		id, err := u.store.AddEdge(graph.GraphEdge{
			Source:     srcID,
			Target:     tgtID,
			Kind:       e.Kind,
			EdgeSource: e.EdgeSource,
			Confidence: e.Confidence,
			Label:      e.Label,
			FilePath:   path,
			Line:       e.Line,
		})
		if err != nil {
			continue
		}
		newEdgeIDs = append(newEdgeIDs, id)
		edge, _ := u.store.Edge(id)
		addedEdges = append(addedEdges, edge)
	}

	u.fileMu.Lock()
	u.fileNodes[path] = newNodeIDs
	u.fileEdges[path] = newEdgeIDs
	u.fileMu.Unlock()

	return graph.GraphDiff{
		AddedNodes:   addedNodes,
		RemovedNodes: oldNodes,
		AddedEdges:   addedEdges,
		RemovedEdges: oldEdges,
	}
}

// appendMigration adds a Migration node for path, ordered by filename among
// the other migrations already seen in the same directory, plus a
// MigrationTarget edge from the previous migration in that directory if one
// exists. Mutates result before the caller resolves its nodes/edges, so the
// migration node and edge go through the same insertion path as anything a
// language extractor produced.
func (u *Updater) appendMigration(path string, result *extract.Result) {
	migQName := path + "::migration"
	result.Nodes = append(result.Nodes, extract.Node{GraphNode: graph.GraphNode{
		Kind:          graph.KindMigration,
		Name:          baseName(path),
		QualifiedName: migQName,
		FilePath:      path,
	}})
	result.Edges = append(result.Edges, extract.Edge{
		Source:     path,
		Target:     migQName,
		Kind:       graph.EdgeContains,
		EdgeSource: graph.SourceStructural,
		Confidence: 1.0,
	})

	if prevPath, ok := u.recordMigration(path); ok {
		result.Edges = append(result.Edges, extract.Edge{
			Source:     prevPath + "::migration",
			Target:     migQName,
			Kind:       graph.EdgeMigrationTarget,
			EdgeSource: graph.SourceStructural,
			Confidence: 1.0,
		})
	}
}

// recordMigration registers path's basename in its directory's sorted
// migration list (inserting it if new) and reports the full path of the
// immediately preceding migration in that directory, if any.
func (u *Updater) recordMigration(path string) (string, bool) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	u.migMu.Lock()
	defer u.migMu.Unlock()

	list := u.migrationsByDir[dir]
	idx := sort.SearchStrings(list, base)
	if idx >= len(list) || list[idx] != base {
		list = append(list, "")
		copy(list[idx+1:], list[idx:])
		list[idx] = base
		u.migrationsByDir[dir] = list
	}
	if idx == 0 {
		return "", false
	}
	return filepath.Join(dir, list[idx-1]), true
}

// removeMigrationEntry retracts path from its directory's migration list so a
// later file at the same name is treated as new rather than already-ordered.
func (u *Updater) removeMigrationEntry(path string) {
	if !extract.IsMigrationPath(path) {
		return
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	u.migMu.Lock()
	defer u.migMu.Unlock()

	list := u.migrationsByDir[dir]
	idx := sort.SearchStrings(list, base)
	if idx < len(list) && list[idx] == base {
		u.migrationsByDir[dir] = append(list[:idx], list[idx+1:]...)
	}
}

// resolveCrossFile attempts to resolve an unresolved import specifier
// against the symbol table directly, then against the package alias map
// (§4.10) by stripping a matching package prefix and retrying.
func (u *Updater) resolveCrossFile(specifier string) (graph.NodeId, bool) {
	if id, ok := u.symbols.Lookup(specifier); ok {
		return id, true
	}

	u.aliasMu.RLock()
	defer u.aliasMu.RUnlock()
	for pkgName, pkgPath := range u.aliases {
		if len(specifier) > len(pkgName) && specifier[:len(pkgName)] == pkgName {
			candidate := pkgPath + specifier[len(pkgName):]
			if id, ok := u.symbols.Lookup(candidate); ok {
				return id, true
			}
		}
	}
	return 0, false
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
