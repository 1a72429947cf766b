package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"grimm.is/routepin/internal/routing"
)

// GatewayFunc returns the interface's current gateway, "" when there is none.
type GatewayFunc func(ctx context.Context) (string, error)

// PinnedFunc returns the pinned destinations.
type PinnedFunc func() []string

// CheckStateDir verifies the directory holding the state file is writable.
func CheckStateDir(path string) CheckFunc {
	return func(ctx context.Context) Check {
		f, err := os.CreateTemp(filepath.Dir(path), ".routepin-health-*")
		if err != nil {
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("state directory not writable: %v", err)}
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return Check{Status: StatusHealthy, Message: "state directory writable"}
	}
}

// CheckGateway reports degraded while the interface has no gateway.
func CheckGateway(iface string, gateway GatewayFunc) CheckFunc {
	return func(ctx context.Context) Check {
		gw, err := gateway(ctx)
		switch {
		case err != nil:
			return Check{Status: StatusUnhealthy, Message: fmt.Sprintf("gateway resolution failed: %v", err)}
		case gw == "":
			return Check{Status: StatusDegraded, Message: "no gateway on " + iface}
		}
		return Check{Status: StatusHealthy, Message: "gateway " + gw}
	}
}

// CheckRoutes reads the live table via the current gateway and reports
// degraded when pinned routes are missing from it.
func CheckRoutes(inspector routing.Inspector, gateway GatewayFunc, pinned PinnedFunc) CheckFunc {
	return func(ctx context.Context) Check {
		gw, err := gateway(ctx)
		if err != nil || gw == "" {
			return Check{Status: StatusHealthy, Message: "no gateway, nothing to verify"}
		}
		live, err := inspector.ListRoutesViaGateway(ctx, gw)
		if err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		missing, _ := routing.Drift(pinned(), live)
		if len(missing) > 0 {
			return Check{Status: StatusDegraded, Message: fmt.Sprintf("%d pinned route(s) missing via %s", len(missing), gw)}
		}
		return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d live route(s) via %s", len(live), gw)}
	}
}
