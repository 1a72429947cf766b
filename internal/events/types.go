// Package events provides the pub/sub bus that carries engine activity to
// front-ends and other observers.
package events

import "time"

// EventType identifies the category of event.
type EventType string

const (
	EventGatewayChanged EventType = "gateway.changed"
	EventRouteView      EventType = "routes.view"
	EventOperationDone  EventType = "operation.done"
	EventMessage        EventType = "message"
)

// Event is the core message passed through the event bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // Component that emitted: "monitor", "reconciler", ...
	Data      any       `json:"data"`   // Type-specific payload
}

// GatewayChangedData is the payload for EventGatewayChanged.
type GatewayChangedData struct {
	Interface string `json:"interface,omitempty"`
	Previous  string `json:"previous"`
	Gateway   string `json:"gateway"` // empty when the interface has no gateway
}

// RouteViewData is the payload for EventRouteView.
type RouteViewData struct {
	Gateway string   `json:"gateway"`
	Lines   []string `json:"lines"`
}

// OperationDoneData is the payload for EventOperationDone.
type OperationDoneData struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Outcome   string   `json:"outcome"`
	Succeeded []string `json:"succeeded,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// MessageData is the payload for EventMessage, a user-facing info or error line.
type MessageData struct {
	Error   bool   `json:"error"`
	Context string `json:"context"`
	Detail  string `json:"detail"`
}
