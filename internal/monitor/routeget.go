package monitor

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"grimm.is/routepin/internal/routing"
)

// RouteGetResolver parses `route -n get default`, scoped to the interface.
type RouteGetResolver struct {
	Runner routing.CommandRunner
}

// Gateway implements Resolver.
func (r RouteGetResolver) Gateway(ctx context.Context, iface string) (string, error) {
	args := []string{"-n", "get"}
	if iface != "" {
		args = append(args, "-ifscope", iface)
	}
	args = append(args, "default")

	out, err := r.Runner.RunCommand(ctx, "route", args...)
	if err != nil {
		// The runner reports stderr in the error text.
		if strings.Contains(err.Error(), "not in table") {
			return "", nil
		}
		return "", fmt.Errorf("route get default: %w", err)
	}
	gw, dev := ParseRouteGet(out)
	if iface != "" && dev != "" && dev != iface {
		return "", nil
	}
	return gw, nil
}

// ParseRouteGet extracts the gateway and interface lines from `route get` output.
func ParseRouteGet(out string) (gateway, iface string) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		switch key {
		case "gateway":
			gateway = strings.TrimSpace(val)
		case "interface":
			iface = strings.TrimSpace(val)
		}
	}
	return gateway, iface
}
