package reconciler

import (
	"errors"
	"fmt"
	"strings"

	"grimm.is/routepin/internal/state"
)

var (
	// ErrNoGateway means there is no current gateway to pin routes to.
	ErrNoGateway = errors.New("no gateway")
	// ErrCatchAll means the destination names the default route.
	ErrCatchAll = errors.New("refusing to modify the default route")
	// ErrStopped is returned for operations submitted to a stopped engine.
	ErrStopped = errors.New("engine stopped")
	// ErrAborted marks batch items skipped after the credential was refused.
	ErrAborted = errors.New("skipped after credential failure")
)

// OpKind names an engine operation.
type OpKind string

const (
	OpAdd            OpKind = "add"
	OpDelete         OpKind = "delete"
	OpGatewayChanged OpKind = "reanchor"
	OpRefresh        OpKind = "refresh"
)

// Operation is a unit of work for the engine worker.
type Operation struct {
	Kind OpKind
	// Text is the raw user input for add and delete.
	Text string
	// Literal deletes Text as a single destination instead of a ';' list.
	Literal bool
	// Gateway is the newly observed gateway for OpGatewayChanged.
	Gateway string
	// Initial marks the monitor's first observation rather than a change.
	Initial bool
}

// AddOp pins the ';'-separated hosts in text.
func AddOp(text string) Operation { return Operation{Kind: OpAdd, Text: text} }

// DeleteOp unpins the ';'-separated destinations in text.
func DeleteOp(text string) Operation { return Operation{Kind: OpDelete, Text: text} }

// DeleteLiteralOp unpins exactly one destination.
func DeleteLiteralOp(dest string) Operation {
	return Operation{Kind: OpDelete, Text: dest, Literal: true}
}

// GatewayChangedOp re-anchors pinned routes to gateway.
func GatewayChangedOp(gateway string) Operation {
	return Operation{Kind: OpGatewayChanged, Gateway: gateway}
}

// GatewaySeededOp adopts the monitor's first observation of the gateway.
// It re-anchors like GatewayChangedOp when the stored gateway differs. An
// empty gateway issues no commands; the routes are re-added once a gateway
// appears.
func GatewaySeededOp(gateway string) Operation {
	return Operation{Kind: OpGatewayChanged, Gateway: gateway, Initial: true}
}

// RefreshOp re-reads the live routes via the current gateway.
func RefreshOp() Operation { return Operation{Kind: OpRefresh} }

func (o Operation) String() string {
	switch o.Kind {
	case OpGatewayChanged:
		return fmt.Sprintf("%s -> %q", o.Kind, o.Gateway)
	case OpRefresh:
		return string(o.Kind)
	}
	return fmt.Sprintf("%s %q", o.Kind, o.Text)
}

// tokens splits user input on ';', trims, and drops empty entries.
func (o Operation) tokens() []string {
	if o.Literal {
		if t := strings.TrimSpace(o.Text); t != "" {
			return []string{t}
		}
		return nil
	}
	var out []string
	for _, part := range strings.Split(o.Text, ";") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ItemError is the failure of one destination within a batch.
type ItemError struct {
	Destination string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Destination, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Outcome summarizes a Result.
type Outcome string

const (
	OutcomeCommitted       Outcome = "committed"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeFailed          Outcome = "failed"
	OutcomeNoop            Outcome = "noop"
)

// Result is what one operation did.
type Result struct {
	ID        string
	Op        Operation
	Succeeded []string
	Failed    []string
	Errors    []error
}

// Outcome classifies the result.
func (r Result) Outcome() Outcome {
	switch {
	case len(r.Errors) == 0 && len(r.Succeeded) == 0:
		return OutcomeNoop
	case len(r.Errors) == 0:
		return OutcomeCommitted
	case len(r.Succeeded) > 0:
		return OutcomePartiallyFailed
	default:
		return OutcomeFailed
	}
}

// Err joins all errors, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Result) succeed(dest string) {
	r.Succeeded = append(r.Succeeded, dest)
}

func (r *Result) fail(dest string, err error) *ItemError {
	ie := &ItemError{Destination: dest, Err: err}
	r.Failed = append(r.Failed, dest)
	r.Errors = append(r.Errors, ie)
	return ie
}

func emptyInput() error {
	return fmt.Errorf("%w: enter one or more destinations separated by ';'", state.ErrEmptyInput)
}
