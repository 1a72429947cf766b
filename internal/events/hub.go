package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Hub is the central event bus.
// It provides pub/sub semantics with typed events and non-blocking fan-out.
type Hub struct {
	mu   sync.RWMutex
	subs map[EventType][]chan Event

	// Global subscribers receive all events
	global []chan Event

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[EventType][]chan Event),
	}
}

// Publish sends an event to all subscribers of that event type.
// This is non-blocking - if a subscriber's channel is full, the event is dropped.
// Publishing on a nil Hub is a no-op.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.published.Add(1)

	for _, ch := range h.subs[e.Type] {
		h.send(ch, e)
	}
	for _, ch := range h.global {
		h.send(ch, e)
	}
}

func (h *Hub) send(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		h.dropped.Add(1)
	}
}

// Subscribe returns a channel that receives events of the specified types.
// If no types are specified, subscribes to all events.
// The caller is responsible for draining the channel to avoid drops.
func (h *Hub) Subscribe(bufSize int, types ...EventType) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(types) == 0 {
		h.global = append(h.global, ch)
	} else {
		for _, t := range types {
			h.subs[t] = append(h.subs[t], ch)
		}
	}

	return ch
}

// Unsubscribe removes a channel from all subscriptions.
// The channel is NOT closed by this method.
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.global = removeFromSlice(h.global, ch)
	for t, subs := range h.subs {
		h.subs[t] = removeFromSlice(subs, ch)
	}
}

// Stats returns publish/drop counts for monitoring.
func (h *Hub) Stats() (published, dropped uint64) {
	return h.published.Load(), h.dropped.Load()
}

func removeFromSlice(slice []chan Event, target <-chan Event) []chan Event {
	result := make([]chan Event, 0, len(slice))
	for _, ch := range slice {
		if ch != target {
			result = append(result, ch)
		}
	}
	return result
}

// ──────────────────────────────────────────────────────────────────────────────
// Convenience Methods
// ──────────────────────────────────────────────────────────────────────────────

// EmitGatewayChanged publishes a gateway change.
func (h *Hub) EmitGatewayChanged(iface, previous, gateway string) {
	h.Publish(Event{
		Type:   EventGatewayChanged,
		Source: "reconciler",
		Data:   GatewayChangedData{Interface: iface, Previous: previous, Gateway: gateway},
	})
}

// EmitRouteView publishes the rendered live routes via gateway.
func (h *Hub) EmitRouteView(gateway string, lines []string) {
	h.Publish(Event{
		Type:   EventRouteView,
		Source: "reconciler",
		Data:   RouteViewData{Gateway: gateway, Lines: append([]string(nil), lines...)},
	})
}

// EmitOperationDone publishes the result of one engine operation.
func (h *Hub) EmitOperationDone(data OperationDoneData) {
	h.Publish(Event{
		Type:   EventOperationDone,
		Source: "reconciler",
		Data:   data,
	})
}

// EmitMessage publishes an info or error line for the user.
func (h *Hub) EmitMessage(isError bool, context, detail string) {
	h.Publish(Event{
		Type:   EventMessage,
		Source: "reconciler",
		Data:   MessageData{Error: isError, Context: context, Detail: detail},
	})
}
