//go:build !linux && !darwin

package monitor

import "grimm.is/routepin/internal/routing"

// NewDefaultResolver returns the platform resolver. namespace is linux-only.
func NewDefaultResolver(namespace string) (Resolver, error) {
	return RouteGetResolver{Runner: routing.RealCommandRunner{}}, nil
}
