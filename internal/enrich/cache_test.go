package enrich

import (
	"testing"
	"time"

	"github.com/meridiancode/meridian/internal/graph"
)

func TestCache_InsertAndGet(t *testing.T) {
	c := NewCache(time.Hour)
	rels := []InferredRelationship{{SourceID: 1, TargetID: 2, Relationship: RelCalls, Confidence: 0.9}}

	c.Insert(1, "abc123", rels)

	got, ok := c.Get(1, "abc123")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].TargetID != 2 {
		t.Errorf("unexpected cached relationships: %+v", got)
	}

	if _, ok := c.Get(1, "different-hash"); ok {
		t.Error("expected a miss for a different file hash")
	}
	if _, ok := c.Get(2, "abc123"); ok {
		t.Error("expected a miss for a different source node")
	}
}

func TestCache_ExpiresOnLookup(t *testing.T) {
	c := NewCache(time.Nanosecond)
	c.Insert(1, "abc123", []InferredRelationship{{SourceID: 1, TargetID: 2}})
	time.Sleep(time.Millisecond)

	if _, ok := c.Get(1, "abc123"); ok {
		t.Error("expected the expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expected the expired entry to be evicted on lookup, got %d entries", c.Len())
	}
}

func TestCache_SweepsExpiredOnInsert(t *testing.T) {
	c := NewCache(time.Nanosecond)
	for i := 0; i < 5; i++ {
		c.Insert(graph.NodeId(i), "hash", []InferredRelationship{{SourceID: 1}})
	}
	time.Sleep(time.Millisecond)

	// A fresh insert with a longer TTL should sweep the expired entries.
	c2 := NewCache(time.Hour)
	c2.entries = c.entries
	c2.Insert(99, "fresh", []InferredRelationship{{SourceID: 1}})

	if c2.Len() > 2 {
		t.Errorf("expected opportunistic sweep to shrink the table, got %d entries", c2.Len())
	}
}
