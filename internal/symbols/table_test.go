package symbols

import (
	"testing"

	"github.com/meridiancode/meridian/internal/graph"
)

func TestInsertAndLookup(t *testing.T) {
	tbl := NewTable()
	tbl.Insert("a.go", "a.go::Foo", graph.NodeId(1))

	id, ok := tbl.Lookup("a.go::Foo")
	if !ok || id != graph.NodeId(1) {
		t.Fatalf("expected hit with id 1, got %v ok=%v", id, ok)
	}
}

func TestRemoveFileRetractsAllSymbols(t *testing.T) {
	tbl := NewTable()
	tbl.Insert("a.go", "a.go::Foo", graph.NodeId(1))
	tbl.Insert("a.go", "a.go::Bar", graph.NodeId(2))
	tbl.Insert("b.go", "b.go::Baz", graph.NodeId(3))

	tbl.RemoveFile("a.go")

	if _, ok := tbl.Lookup("a.go::Foo"); ok {
		t.Fatalf("expected a.go::Foo retracted")
	}
	if _, ok := tbl.Lookup("a.go::Bar"); ok {
		t.Fatalf("expected a.go::Bar retracted")
	}
	if _, ok := tbl.Lookup("b.go::Baz"); !ok {
		t.Fatalf("expected b.go::Baz to remain")
	}
	if got := tbl.Len(); got != 1 {
		t.Fatalf("expected 1 remaining symbol, got %d", got)
	}
}

func TestSymbolsInFileReflectsReinsertion(t *testing.T) {
	tbl := NewTable()
	tbl.Insert("a.go", "a.go::Foo", graph.NodeId(1))
	tbl.RemoveFile("a.go")
	tbl.Insert("a.go", "a.go::Renamed", graph.NodeId(2))

	names := tbl.SymbolsInFile("a.go")
	if len(names) != 1 || names[0] != "a.go::Renamed" {
		t.Fatalf("expected [a.go::Renamed], got %v", names)
	}
}
