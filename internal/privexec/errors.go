package privexec

import (
	"fmt"
	"strings"
)

// CredentialError means no valid elevation credential could be obtained. It
// aborts the current command only.
type CredentialError struct {
	Reason string
	Stderr string
	Err    error
}

func (e *CredentialError) Error() string {
	msg := "credential error: " + e.Reason
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *CredentialError) Unwrap() error { return e.Err }

// CommandError means a privileged command ran and failed, could not be
// started (ExitStatus -1), or exceeded the configured ceiling (Timeout).
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
	Timeout    bool
	Err        error
}

func (e *CommandError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("command %q timed out", e.Command)
	case e.ExitStatus < 0:
		return fmt.Sprintf("command %q could not be started: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitStatus)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }
