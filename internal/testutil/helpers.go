// Package testutil holds helpers shared by tests.
package testutil

import (
	"os"
	"testing"
)

// RequireKernel skips the test unless ROUTEPIN_KERNEL_TEST is set. Tests
// guarded by it talk to the real routing table of the host.
func RequireKernel(t *testing.T) {
	t.Helper()
	if os.Getenv("ROUTEPIN_KERNEL_TEST") == "" {
		t.Skip("Skipping test: requires ROUTEPIN_KERNEL_TEST environment")
	}
}

// RequireRoot skips the test unless it runs as root.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
