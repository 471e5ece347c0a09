// Package broadcast fans out graph diffs to WebSocket subscribers: a full
// snapshot on subscribe, then an ordered stream of GraphDiffs.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/meridiancode/meridian/internal/graph"
)

const (
	subscriberOutboxSize = 64
	historySize          = 200
)

// Message is the tagged envelope sent to WebSocket clients, mirroring the
// wire protocol's full_graph/graph_diff/error/pong frames.
type Message struct {
	Type     string          `json:"type"`
	Snapshot *graph.Snapshot `json:"snapshot,omitempty"`
	Diff     *graph.GraphDiff `json:"diff,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type subscriber struct {
	id     uint64
	outbox chan Message
}

// Hub is a multi-producer, multi-consumer broadcast point. Broadcast never
// blocks a producer: it enqueues onto each subscriber's buffered outbox with
// a non-blocking send, marking slow subscribers for resync instead of
// waiting on them.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]*subscriber
	nextID      uint64

	seq     uint64
	history []graph.GraphDiff
	snapshot func() graph.Snapshot
}

// NewHub returns a Hub that calls snapshotFn to build the full_graph message
// sent to each new subscriber.
func NewHub(snapshotFn func() graph.Snapshot) *Hub {
	return &Hub{
		subscribers: make(map[uint64]*subscriber),
		snapshot:    snapshotFn,
	}
}

// Subscribe registers a new subscriber and returns its id plus the channel
// it should drain. The caller is responsible for sending the initial
// full_graph message (via Snapshot) before forwarding subsequent diffs.
func (h *Hub) Subscribe() (id uint64, outbox <-chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &subscriber{id: h.nextID, outbox: make(chan Message, subscriberOutboxSize)}
	h.subscribers[sub.id] = sub
	return sub.id, sub.outbox
}

// Unsubscribe removes a subscriber and closes its outbox.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.outbox)
		delete(h.subscribers, id)
	}
}

// Snapshot returns the current full-graph message for an initial send.
func (h *Hub) Snapshot() Message {
	snap := h.snapshot()
	return Message{Type: "full_graph", Snapshot: &snap}
}

// Broadcast assigns diff the next sequence number and enqueues it onto every
// subscriber's outbox, returning diff with Sequence filled in. Sequence
// allocation and delivery happen under the same lock, so concurrent callers
// (the Updater's per-file loop, the AI Enricher's concurrent workers) can
// never have their diffs observed out of sequence order. A subscriber whose
// outbox is full is considered lagged: its queued diffs are discarded and a
// fresh full_graph resync is enqueued in their place; if even that cannot be
// enqueued, it is dropped and its
// connection should be closed by the caller handling the websocket loop.
func (h *Hub) Broadcast(diff graph.GraphDiff) graph.GraphDiff {
	if diff.IsEmpty() {
		return diff
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	diff.Sequence = h.seq

	h.history = append(h.history, diff)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}

	msg := Message{Type: "graph_diff", Diff: &diff}
	for _, sub := range h.subscribers {
		h.deliverLocked(sub, msg)
	}
	return diff
}

// deliverLocked must be called with h.mu held.
func (h *Hub) deliverLocked(sub *subscriber, msg Message) {
	select {
	case sub.outbox <- msg:
		return
	default:
	}

	slog.Warn("broadcast: subscriber lagged, attempting resync", "subscriber", sub.id)
	// The snapshot supersedes every queued diff, so discard them to make room.
	for drained := false; !drained; {
		select {
		case <-sub.outbox:
		default:
			drained = true
		}
	}
	resync := h.Snapshot()
	select {
	case sub.outbox <- resync:
	default:
		slog.Warn("broadcast: resync undeliverable, dropping subscriber", "subscriber", sub.id)
		close(sub.outbox)
		delete(h.subscribers, sub.id)
	}
}

// SubscriberCount reports how many subscribers are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		close(sub.outbox)
		delete(h.subscribers, id)
	}
}
