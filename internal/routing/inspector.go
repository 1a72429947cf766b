// Package routing reads the live routing table and describes the mutations
// routepin applies to it.
package routing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"grimm.is/routepin/internal/logging"
)

// LiveRouteEntry is one row of the live routing table bound to a gateway.
type LiveRouteEntry struct {
	Destination string
	Gateway     string
	Fields      []string
	Raw         string
}

// String returns the row as shown to the user.
func (e LiveRouteEntry) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	return strings.Join(e.Fields, " ")
}

// TableReadError reports that the live table could not be queried.
type TableReadError struct {
	Err error
}

func (e *TableReadError) Error() string {
	return fmt.Sprintf("failed to read routing table: %v", e.Err)
}

func (e *TableReadError) Unwrap() error { return e.Err }

// Inspector lists live routes whose next hop is gateway.
type Inspector interface {
	ListRoutesViaGateway(ctx context.Context, gateway string) ([]LiveRouteEntry, error)
}

// CommandRunner abstracts running an unprivileged command.
type CommandRunner interface {
	RunCommand(ctx context.Context, name string, arg ...string) (string, error)
}

// RealCommandRunner runs commands with os/exec.
type RealCommandRunner struct{}

// RunCommand runs a command and returns its stdout.
func (RealCommandRunner) RunCommand(ctx context.Context, name string, arg ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, arg...)
	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command %s %v failed: %w, stderr: %s", name, arg, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("command %s %v failed: %w", name, arg, err)
	}
	return string(output), nil
}

// NetstatInspector parses `netstat -rn`.
type NetstatInspector struct {
	runner CommandRunner
	logger *logging.Logger
}

// NewNetstatInspector creates an inspector; a nil runner uses os/exec.
func NewNetstatInspector(runner CommandRunner) *NetstatInspector {
	if runner == nil {
		runner = RealCommandRunner{}
	}
	return &NetstatInspector{runner: runner, logger: logging.WithComponent("routing")}
}

// ListRoutesViaGateway implements Inspector.
func (n *NetstatInspector) ListRoutesViaGateway(ctx context.Context, gateway string) ([]LiveRouteEntry, error) {
	out, err := n.runner.RunCommand(ctx, "netstat", "-rn")
	if err != nil {
		return nil, &TableReadError{Err: err}
	}
	entries := ParseNetstat(out, gateway)
	n.logger.Debug("read routing table", "gateway", gateway, "entries", len(entries))
	return entries, nil
}

// ParseNetstat keeps the rows of `netstat -rn` output whose second column is
// gateway, skipping default routes. Row order is preserved.
func ParseNetstat(output, gateway string) []LiveRouteEntry {
	entries := []LiveRouteEntry{}
	if gateway == "" {
		return entries
	}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.Contains(line, "default") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != gateway || IsCatchAll(fields[0]) {
			continue
		}
		entries = append(entries, LiveRouteEntry{
			Destination: fields[0],
			Gateway:     fields[1],
			Fields:      fields,
			Raw:         line,
		})
	}
	return entries
}

// Render turns entries into display lines.
func Render(entries []LiveRouteEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return lines
}
