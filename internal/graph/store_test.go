package graph

import "testing"

func TestAddNodeAssignsMonotonicIDs(t *testing.T) {
	s := NewStore()
	a := s.AddNode(GraphNode{Kind: KindFile, Name: "a.go"})
	b := s.AddNode(GraphNode{Kind: KindFile, Name: "b.go"})
	if a == b {
		t.Fatalf("expected distinct ids, got %s and %s", a, b)
	}
	if b <= a {
		t.Fatalf("expected monotonic increase, got a=%s b=%s", a, b)
	}
}

func TestAddEdgeRejectsMissingEndpoints(t *testing.T) {
	s := NewStore()
	n := s.AddNode(GraphNode{Kind: KindFile})
	if _, err := s.AddEdge(GraphEdge{Source: n, Target: 9999, Kind: EdgeContains}); err == nil {
		t.Fatalf("expected error for missing target")
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	s := NewStore()
	a := s.AddNode(GraphNode{Kind: KindFile, Name: "a"})
	b := s.AddNode(GraphNode{Kind: KindFunction, Name: "b"})
	eid, err := s.AddEdge(GraphEdge{Source: a, Target: b, Kind: EdgeContains, Confidence: 1})
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	s.RemoveNode(a)

	if _, ok := s.Node(a); ok {
		t.Fatalf("node a should be gone")
	}
	if _, ok := s.Edge(eid); ok {
		t.Fatalf("edge should have cascaded away")
	}
	if got := s.EdgesTo(b); len(got) != 0 {
		t.Fatalf("expected no incoming edges on b, got %d", len(got))
	}
}

func TestIDsNeverReused(t *testing.T) {
	s := NewStore()
	a := s.AddNode(GraphNode{Kind: KindFile})
	s.RemoveNode(a)
	b := s.AddNode(GraphNode{Kind: KindFile})
	if b == a {
		t.Fatalf("id %s was reused after removal", a)
	}
}

func TestAncestorsFollowsContainsBackwards(t *testing.T) {
	s := NewStore()
	root := s.AddNode(GraphNode{Kind: KindFile, Name: "root.go"})
	class := s.AddNode(GraphNode{Kind: KindClass, Name: "Widget"})
	method := s.AddNode(GraphNode{Kind: KindMethod, Name: "Render"})

	if _, err := s.AddEdge(GraphEdge{Source: root, Target: class, Kind: EdgeContains, Confidence: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEdge(GraphEdge{Source: class, Target: method, Kind: EdgeContains, Confidence: 1}); err != nil {
		t.Fatal(err)
	}

	anc := s.Ancestors(method)
	if len(anc) != 2 {
		t.Fatalf("expected 2 ancestors, got %d: %v", len(anc), anc)
	}
}

func TestFindByQualifiedName(t *testing.T) {
	s := NewStore()
	id := s.AddNode(GraphNode{Kind: KindFunction, Name: "Do", QualifiedName: "pkg::Do"})
	got, ok := s.FindByQualifiedName("pkg::Do")
	if !ok || got != id {
		t.Fatalf("expected %s, got %s ok=%v", id, got, ok)
	}
	if _, ok := s.FindByQualifiedName("pkg::Missing"); ok {
		t.Fatalf("expected miss")
	}
}

func TestNodeKindJSONRoundTrip(t *testing.T) {
	data, err := KindFunction.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var k NodeKind
	if err := k.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if k != KindFunction {
		t.Fatalf("expected KindFunction, got %v", k)
	}
}
