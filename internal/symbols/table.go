// Package symbols maintains the concurrent qualified-name index used to
// resolve heuristic cross-file references against the live graph.
package symbols

import (
	"sync"

	"github.com/meridiancode/meridian/internal/graph"
)

// Table maps qualified names to node ids and tracks, per file, which
// qualified names that file currently defines so a re-extraction can cleanly
// retract its old entries before inserting new ones.
//
// All exported methods are thread-safe.
type Table struct {
	mu sync.RWMutex

	byQualified map[string]graph.NodeId
	byFile      map[string][]string
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{
		byQualified: make(map[string]graph.NodeId),
		byFile:      make(map[string][]string),
	}
}

// Insert records that qualifiedName in file resolves to id, overwriting any
// prior entry for that qualified name. Thread-safe.
func (t *Table) Insert(file, qualifiedName string, id graph.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byQualified[qualifiedName] = id
	t.byFile[file] = append(t.byFile[file], qualifiedName)
}

// Lookup resolves a qualified name to a node id. Thread-safe.
func (t *Table) Lookup(qualifiedName string) (graph.NodeId, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byQualified[qualifiedName]
	return id, ok
}

// SymbolsInFile returns the qualified names currently attributed to file.
// Thread-safe.
func (t *Table) SymbolsInFile(file string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string{}, t.byFile[file]...)
}

// RemoveFile retracts every qualified name currently attributed to file.
// Thread-safe.
func (t *Table) RemoveFile(file string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, q := range t.byFile[file] {
		delete(t.byQualified, q)
	}
	delete(t.byFile, file)
}

// Len returns the number of qualified names currently indexed. Thread-safe.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byQualified)
}
