package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running program (tea.Program satisfies it).
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge implements reconciler.Frontend on top of a bubbletea program.
// Engine callbacks become messages; PromptCredential blocks until the
// password modal is answered or the bridge is closed.
type Bridge struct {
	mu        sync.RWMutex
	program   Sender
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates a detached Bridge. Messages are dropped until Attach.
func NewBridge() *Bridge {
	return &Bridge{done: make(chan struct{})}
}

// Attach connects the bridge to p.
func (b *Bridge) Attach(p Sender) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Close releases any pending credential prompt with a cancel.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.RLock()
	p := b.program
	b.mu.RUnlock()
	if p == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
	}
	p.Send(msg)
	return true
}

// ReportError implements reconciler.Frontend.
func (b *Bridge) ReportError(context, detail string) {
	b.send(NoticeMsg{Error: true, Context: context, Detail: detail})
}

// ReportInfo implements reconciler.Frontend.
func (b *Bridge) ReportInfo(context, detail string) {
	b.send(NoticeMsg{Context: context, Detail: detail})
}

// OnGatewayUpdated implements reconciler.Frontend.
func (b *Bridge) OnGatewayUpdated(gateway string) {
	b.send(GatewayMsg{Gateway: gateway})
}

// OnRouteViewUpdated implements reconciler.Frontend.
func (b *Bridge) OnRouteViewUpdated(lines []string) {
	b.send(RoutesMsg{Lines: append([]string(nil), lines...)})
}

// PromptCredential implements reconciler.Frontend.
func (b *Bridge) PromptCredential() (string, bool) {
	reply := make(chan CredentialReply, 1)
	if !b.send(CredentialRequestMsg{Reply: reply}) {
		return "", false
	}
	select {
	case r := <-reply:
		if !r.OK || r.Secret == "" {
			return "", false
		}
		return r.Secret, true
	case <-b.done:
		return "", false
	}
}
