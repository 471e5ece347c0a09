package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meridiancode/meridian/internal/graph"
	"github.com/meridiancode/meridian/internal/parserpool"
	"github.com/meridiancode/meridian/internal/symbols"
	"github.com/meridiancode/meridian/internal/watcher"
)

type recordingBroadcaster struct {
	diffs []graph.GraphDiff
}

func (r *recordingBroadcaster) Broadcast(d graph.GraphDiff) graph.GraphDiff {
	r.diffs = append(r.diffs, d)
	return d
}

type recordingEnricher struct {
	calls int
}

func (r *recordingEnricher) Enqueue(path string, nodes []graph.GraphNode) {
	r.calls++
}

func newTestUpdater() (*Updater, *graph.Store, *recordingBroadcaster, *recordingEnricher) {
	store := graph.NewStore()
	table := symbols.NewTable()
	pool := parserpool.New()
	b := &recordingBroadcaster{}
	e := &recordingEnricher{}
	return New(store, table, pool, b, e), store, b, e
}

func TestApply_CreateThenModifyThenRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	u, store, b, e := newTestUpdater()
	ctx := context.Background()

	if err := u.Apply(ctx, path, watcher.Created); err != nil {
		t.Fatalf("unexpected error on create: %v", err)
	}
	if _, ok := store.FindByQualifiedName(path); !ok {
		t.Fatal("expected a File node for the created path")
	}
	if len(b.diffs) != 1 {
		t.Fatalf("expected 1 diff after create, got %d", len(b.diffs))
	}
	if len(b.diffs[0].AddedNodes) != 1 {
		t.Errorf("expected 1 added node (the File node), got %d", len(b.diffs[0].AddedNodes))
	}
	if e.calls != 1 {
		t.Errorf("expected enricher to be notified once, got %d", e.calls)
	}

	if err := os.WriteFile(path, []byte("hello again"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := u.Apply(ctx, path, watcher.Modified); err != nil {
		t.Fatalf("unexpected error on modify: %v", err)
	}
	if store.NodeCount() != 1 {
		t.Errorf("expected the old File node to be replaced, not duplicated; got %d nodes", store.NodeCount())
	}

	if err := u.Apply(ctx, path, watcher.Removed); err != nil {
		t.Fatalf("unexpected error on remove: %v", err)
	}
	if _, ok := store.FindByQualifiedName(path); ok {
		t.Error("expected the File node to be gone after removal")
	}
	if store.NodeCount() != 0 {
		t.Errorf("expected an empty store after removal, got %d nodes", store.NodeCount())
	}
	if len(b.diffs) != 3 {
		t.Fatalf("expected 3 diffs total (create, modify, remove), got %d", len(b.diffs))
	}
	if len(b.diffs[2].RemovedNodes) != 1 {
		t.Errorf("expected the removal diff to list 1 removed node, got %d", len(b.diffs[2].RemovedNodes))
	}
}

func TestApply_RemoveUnknownPathIsNoop(t *testing.T) {
	u, store, b, _ := newTestUpdater()
	if err := u.Apply(context.Background(), "/never/seen.txt", watcher.Removed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.NodeCount() != 0 {
		t.Errorf("expected no nodes, got %d", store.NodeCount())
	}
	if len(b.diffs) != 1 {
		t.Fatalf("expected a (no-op) removal diff to still be broadcast, got %d", len(b.diffs))
	}
}

func TestApply_MissingFileReadError(t *testing.T) {
	u, _, b, _ := newTestUpdater()
	err := u.Apply(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), watcher.Created)
	if err == nil {
		t.Fatal("expected an error reading a nonexistent file")
	}
	if len(b.diffs) != 0 {
		t.Errorf("expected no diff to be broadcast on read failure, got %d", len(b.diffs))
	}
}

func TestApply_MigrationFileEmitsNodeAndTargetEdge(t *testing.T) {
	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "migrations")
	if err := os.Mkdir(migrationsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	first := filepath.Join(migrationsDir, "001_init.sql")
	second := filepath.Join(migrationsDir, "002_add_users.sql")
	if err := os.WriteFile(first, []byte("create table t (id int);"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("create table users (id int);"), 0o644); err != nil {
		t.Fatal(err)
	}

	u, store, _, _ := newTestUpdater()
	ctx := context.Background()

	if err := u.Apply(ctx, first, watcher.Created); err != nil {
		t.Fatalf("unexpected error on first migration: %v", err)
	}
	firstID, ok := store.FindByQualifiedName(first + "::migration")
	if !ok {
		t.Fatal("expected a Migration node for the first migration file")
	}
	firstNode, _ := store.Node(firstID)
	if firstNode.Kind != graph.KindMigration {
		t.Errorf("expected KindMigration, got %v", firstNode.Kind)
	}

	if err := u.Apply(ctx, second, watcher.Created); err != nil {
		t.Fatalf("unexpected error on second migration: %v", err)
	}
	secondID, ok := store.FindByQualifiedName(second + "::migration")
	if !ok {
		t.Fatal("expected a Migration node for the second migration file")
	}

	var found bool
	for _, e := range store.EdgesFrom(firstID) {
		if e.Kind == graph.EdgeMigrationTarget && e.Target == secondID {
			found = true
		}
	}
	if !found {
		t.Error("expected a MigrationTarget edge from the first migration to the second")
	}
}

func TestResolveCrossFile_AliasPrefix(t *testing.T) {
	u, _, _, _ := newTestUpdater()
	u.symbols.Insert("pkg/shared/shared.go", "pkg/shared/shared.go::Hello", 42)
	u.SetAliases(map[string]string{"myapp/shared": "pkg/shared/shared.go"})

	id, ok := u.resolveCrossFile("myapp/shared::Hello")
	if !ok {
		t.Fatal("expected cross-file resolution via alias prefix to succeed")
	}
	if id != 42 {
		t.Errorf("expected resolved id 42, got %d", id)
	}

	if _, ok := u.resolveCrossFile("unknown::Symbol"); ok {
		t.Error("expected no resolution for an unrelated specifier")
	}
}
