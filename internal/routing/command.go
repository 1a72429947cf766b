package routing

import (
	"fmt"
	"runtime"
	"strings"
)

// Kind is one of the two mutations routepin ever issues.
type Kind string

const (
	KindAdd    Kind = "add"
	KindDelete Kind = "delete"
)

// CommandSpec describes a single routing-table mutation. Destination and
// Gateway are passed through untouched.
type CommandSpec struct {
	Kind        Kind
	Destination string
	Gateway     string // only used by KindAdd
}

// AddRoute returns the spec for "add route to dest via gw".
func AddRoute(dest, gw string) CommandSpec {
	return CommandSpec{Kind: KindAdd, Destination: dest, Gateway: gw}
}

// DeleteRoute returns the spec for "delete route to dest".
func DeleteRoute(dest string) CommandSpec {
	return CommandSpec{Kind: KindDelete, Destination: dest}
}

// Validate rejects specs that would touch the catch-all route or that are
// missing required fields.
func (c CommandSpec) Validate() error {
	if strings.TrimSpace(c.Destination) == "" {
		return fmt.Errorf("route %s: empty destination", c.Kind)
	}
	if IsCatchAll(c.Destination) {
		return fmt.Errorf("route %s %s: refusing to modify the default route", c.Kind, c.Destination)
	}
	switch c.Kind {
	case KindAdd:
		if strings.TrimSpace(c.Gateway) == "" {
			return fmt.Errorf("route add %s: no gateway", c.Destination)
		}
	case KindDelete:
	default:
		return fmt.Errorf("unknown route command kind %q", c.Kind)
	}
	return nil
}

// Argv renders the argument vector for the running platform.
func (c CommandSpec) Argv() []string {
	return c.ArgvFor(runtime.GOOS)
}

// ArgvFor renders the argument vector for goos. Linux uses iproute2; every
// other platform uses BSD route(8).
func (c CommandSpec) ArgvFor(goos string) []string {
	if goos == "linux" {
		if c.Kind == KindAdd {
			return []string{"ip", "route", "add", c.Destination, "via", c.Gateway}
		}
		return []string{"ip", "route", "del", c.Destination}
	}

	argv := []string{"route", "-n", string(c.Kind)}
	if strings.Contains(c.Destination, ":") {
		argv = append(argv, "-inet6")
	}
	argv = append(argv, c.Destination)
	if c.Kind == KindAdd {
		argv = append(argv, c.Gateway)
	}
	return argv
}

// String is the human-readable form used in logs and error messages.
func (c CommandSpec) String() string {
	if c.Kind == KindAdd {
		return fmt.Sprintf("add %s via %s", c.Destination, c.Gateway)
	}
	return fmt.Sprintf("delete %s", c.Destination)
}

// IsCatchAll reports whether dest names the default route.
func IsCatchAll(dest string) bool {
	switch strings.TrimSpace(dest) {
	case "default", "0.0.0.0", "0.0.0.0/0", "::", "::/0", "0/0":
		return true
	}
	return false
}
