package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type sinkSet map[contract.EventSink]struct{}

type room struct {
	deliver sync.Mutex
	sinks   sinkSet
}

// Hub is the process-wide map of room key to subscribed sinks.
// Membership is in memory only and rebuilt as clients reconnect.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]*room
	sinkTimeout time.Duration
	log         *slog.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

func NewHub(sinkTimeout time.Duration, log *slog.Logger) *Hub {
	return &Hub{
		rooms:       make(map[string]*room),
		sinkTimeout: sinkTimeout,
		log:         log,
	}
}

// Join subscribes sink to roomKey, creating the group on the fly.
func (h *Hub) Join(roomKey string, sink contract.EventSink) {
	if sink == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomKey]
	if !ok {
		r = &room{sinks: make(sinkSet)}
		h.rooms[roomKey] = r
	}
	r.sinks[sink] = struct{}{}
}

// Leave is idempotent. Empty groups are dropped so the map doesn't grow forever.
func (h *Hub) Leave(roomKey string, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomKey]
	if !ok {
		return
	}
	delete(r.sinks, sink)
	if len(r.sinks) == 0 {
		delete(h.rooms, roomKey)
	}
}

// Publish delivers e to every sink joined to roomKey when the call is made.
// Deliveries within a room are serialized so every sink sees the same order.
// A failing sink is logged and skipped; nothing is reported to the caller.
func (h *Hub) Publish(ctx context.Context, roomKey string, e event.Outbound) {
	h.published.Add(1)

	h.mu.RLock()
	r, ok := h.rooms[roomKey]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.deliver.Lock()
	defer r.deliver.Unlock()

	for _, sink := range h.snapshot(r) {
		if err := h.consume(ctx, sink, e); err != nil {
			h.failed.Add(1)
			h.log.Warn("Delivery failed", "room", roomKey, "type", e.Kind(), "error", err)
			continue
		}
		h.delivered.Add(1)
	}
}

func (h *Hub) snapshot(r *room) []contract.EventSink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (h *Hub) consume(ctx context.Context, sink contract.EventSink, e event.Outbound) error {
	if h.sinkTimeout <= 0 {
		return sink.Consume(ctx, e)
	}
	ctx, cancel := context.WithTimeout(ctx, h.sinkTimeout)
	defer cancel()
	return sink.Consume(ctx, e)
}

func (h *Hub) Stats() contract.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := contract.HubStats{
		Rooms:     len(h.rooms),
		Published: h.published.Load(),
		Delivered: h.delivered.Load(),
		Failed:    h.failed.Load(),
	}
	for _, r := range h.rooms {
		stats.Sessions += len(r.sinks)
	}
	return stats
}
