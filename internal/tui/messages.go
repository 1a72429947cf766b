package tui

import "grimm.is/routepin/internal/reconciler"

// GatewayMsg carries the current gateway for display.
type GatewayMsg struct{ Gateway string }

// RoutesMsg carries the rendered live routes via the gateway.
type RoutesMsg struct{ Lines []string }

// NoticeMsg is an info or error line for the message pane.
type NoticeMsg struct {
	Error   bool
	Context string
	Detail  string
}

// CredentialRequestMsg opens the password modal. The answer goes to Reply.
type CredentialRequestMsg struct {
	Reply chan<- CredentialReply
}

// CredentialReply answers a CredentialRequestMsg.
type CredentialReply struct {
	Secret string
	OK     bool
}

// resultMsg reports that a submitted operation finished.
type resultMsg struct {
	Result reconciler.Result
}
