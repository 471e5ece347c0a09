package broadcast

import (
	"sync"
	"testing"

	"github.com/meridiancode/meridian/internal/graph"
)

func emptySnapshot() graph.Snapshot { return graph.Snapshot{} }

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h := NewHub(emptySnapshot)
	id, outbox := h.Subscribe()
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.SubscriberCount())
	}

	h.Broadcast(graph.GraphDiff{Sequence: 1, AddedNodes: []graph.GraphNode{{Name: "a"}}})

	msg := <-outbox
	if msg.Type != "graph_diff" || msg.Diff == nil || msg.Diff.Sequence != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	h.Unsubscribe(id)
	if h.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", h.SubscriberCount())
	}
	if _, ok := <-outbox; ok {
		t.Error("expected outbox to be closed after unsubscribe")
	}
}

func TestHub_EmptyDiffNotBroadcast(t *testing.T) {
	h := NewHub(emptySnapshot)
	_, outbox := h.Subscribe()

	h.Broadcast(graph.GraphDiff{})

	select {
	case msg := <-outbox:
		t.Fatalf("expected no message for an empty diff, got %+v", msg)
	default:
	}
}

func TestHub_LaggedSubscriberGetsResync(t *testing.T) {
	h := NewHub(func() graph.Snapshot {
		return graph.Snapshot{Nodes: []graph.GraphNode{{Name: "resynced"}}}
	})
	_, outbox := h.Subscribe()

	for i := 0; i < subscriberOutboxSize+1; i++ {
		h.Broadcast(graph.GraphDiff{Sequence: uint64(i + 1), AddedNodes: []graph.GraphNode{{Name: "x"}}})
	}

	var lastType string
	for {
		select {
		case msg := <-outbox:
			lastType = msg.Type
			continue
		default:
		}
		break
	}
	if lastType != "full_graph" {
		t.Errorf("expected the lagged subscriber's last queued message to be a resync, got %q", lastType)
	}
}

func TestHub_Snapshot(t *testing.T) {
	h := NewHub(func() graph.Snapshot {
		return graph.Snapshot{Nodes: []graph.GraphNode{{Name: "n"}}, Sequence: 7}
	})
	msg := h.Snapshot()
	if msg.Type != "full_graph" || msg.Snapshot == nil || msg.Snapshot.Sequence != 7 {
		t.Fatalf("unexpected snapshot message: %+v", msg)
	}
}

func TestHub_BroadcastConcurrentCallersGetDistinctOrderedSequences(t *testing.T) {
	h := NewHub(emptySnapshot)

	const n = 200
	seqs := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := h.Broadcast(graph.GraphDiff{AddedNodes: []graph.GraphNode{{Name: "x"}}})
			seqs[i] = result.Sequence
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, s := range seqs {
		if s == 0 {
			t.Fatal("expected every concurrent broadcast to receive a nonzero sequence number")
		}
		if seen[s] {
			t.Fatalf("sequence number %d assigned to more than one broadcast", s)
		}
		seen[s] = true
	}
	if len(h.history) != n {
		t.Fatalf("expected %d entries in history, got %d", n, len(h.history))
	}
	for i := 1; i < len(h.history); i++ {
		if h.history[i].Sequence <= h.history[i-1].Sequence {
			t.Fatalf("expected history to be strictly increasing by sequence; got %d then %d",
				h.history[i-1].Sequence, h.history[i].Sequence)
		}
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub(emptySnapshot)
	_, outbox1 := h.Subscribe()
	_, outbox2 := h.Subscribe()
	h.Close()

	if h.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", h.SubscriberCount())
	}
	if _, ok := <-outbox1; ok {
		t.Error("expected outbox1 closed")
	}
	if _, ok := <-outbox2; ok {
		t.Error("expected outbox2 closed")
	}
}
