package events

import (
	"sync"
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventGatewayChanged)
	hub.EmitGatewayChanged("en0", "192.168.1.1", "10.0.0.1")

	select {
	case e := <-ch:
		if e.Type != EventGatewayChanged {
			t.Errorf("expected EventGatewayChanged, got %s", e.Type)
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
		data, ok := e.Data.(GatewayChangedData)
		if !ok {
			t.Fatal("expected GatewayChangedData")
		}
		if data.Previous != "192.168.1.1" || data.Gateway != "10.0.0.1" {
			t.Errorf("unexpected payload %+v", data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHub_GlobalSubscription(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10)

	hub.EmitGatewayChanged("en0", "", "10.0.0.1")
	hub.EmitRouteView("10.0.0.1", []string{"10.0.0.5/32 10.0.0.1 UGHS en0"})
	hub.EmitOperationDone(OperationDoneData{ID: "op-1", Kind: "add", Outcome: "committed"})

	received := 0
	for i := 0; i < 3; i++ {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if received != 3 {
		t.Errorf("expected 3 events, got %d", received)
	}
}

func TestHub_TypeFiltering(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventRouteView, EventOperationDone)

	hub.EmitGatewayChanged("en0", "", "10.0.0.1")
	hub.EmitRouteView("10.0.0.1", nil)
	hub.EmitMessage(true, "add", "no gateway")
	hub.EmitOperationDone(OperationDoneData{ID: "op-2", Kind: "delete", Outcome: "failed"})

	received := 0
	for {
		select {
		case <-ch:
			received++
		case <-time.After(50 * time.Millisecond):
			goto done
		}
	}
done:

	if received != 2 {
		t.Errorf("expected 2 events, got %d", received)
	}
}

func TestHub_RouteViewCopiesLines(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1, EventRouteView)

	lines := []string{"a", "b"}
	hub.EmitRouteView("10.0.0.1", lines)
	lines[0] = "mutated"

	e := <-ch
	if got := e.Data.(RouteViewData).Lines[0]; got != "a" {
		t.Errorf("expected published lines to be a copy, got %q", got)
	}
}

func TestHub_NonBlocking(t *testing.T) {
	hub := NewHub()

	_ = hub.Subscribe(1, EventRouteView)

	for i := 0; i < 10; i++ {
		hub.EmitRouteView("10.0.0.1", nil)
	}

	published, dropped := hub.Stats()
	if published != 10 {
		t.Errorf("expected 10 published, got %d", published)
	}
	if dropped < 9 {
		t.Errorf("expected at least 9 dropped, got %d", dropped)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(4, EventMessage)
	hub.Unsubscribe(ch)

	hub.EmitMessage(false, "add", "added 1 route(s)")

	select {
	case <-ch:
		t.Error("received event after unsubscribe")
	default:
	}
}

func TestHub_NilIsNoop(t *testing.T) {
	var hub *Hub
	hub.EmitMessage(false, "add", "ignored")
}

func TestHub_Concurrent(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1000, EventOperationDone)

	var wg sync.WaitGroup
	const numPublishers = 10
	const eventsPerPublisher = 100

	for i := 0; i < numPublishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerPublisher; j++ {
				hub.EmitOperationDone(OperationDoneData{Kind: "reanchor"})
			}
		}()
	}

	wg.Wait()

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			goto done
		}
	}
done:

	if received < numPublishers*eventsPerPublisher/2 {
		t.Errorf("expected at least %d events, got %d", numPublishers*eventsPerPublisher/2, received)
	}
}
