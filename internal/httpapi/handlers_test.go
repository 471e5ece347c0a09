package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meridiancode/meridian/internal/broadcast"
	"github.com/meridiancode/meridian/internal/graph"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
}

func TestGraphHandler(t *testing.T) {
	store := graph.NewStore()
	store.AddNode(graph.GraphNode{Kind: graph.KindFile, Name: "a.go", QualifiedName: "a.go"})

	req := httptest.NewRequest(http.MethodGet, "/api/graph", nil)
	rec := httptest.NewRecorder()

	graphHandler(store)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(snap.Nodes) != 1 {
		t.Errorf("expected 1 node in the snapshot, got %d", len(snap.Nodes))
	}
}

func TestNewServer_RoutesRegistered(t *testing.T) {
	store := graph.NewStore()
	hub := broadcast.NewHub(func() graph.Snapshot { return graph.Snapshot{} })
	srv := NewServer(store, hub, "0")

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /api/health, got %d", resp.StatusCode)
	}
}
