//go:build linux

package monitor

import (
	"context"
	"errors"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/routing"
)

// NetlinkResolver reads the interface's default route over netlink.
type NetlinkResolver struct {
	nl routing.Netlinker
}

// NewNetlinkResolver creates a resolver backed by nl.
func NewNetlinkResolver(nl routing.Netlinker) *NetlinkResolver {
	return &NetlinkResolver{nl: nl}
}

// NewDefaultResolver returns the platform resolver, inside namespace when set.
func NewDefaultResolver(namespace string) (Resolver, error) {
	h, err := routing.OpenNetlink(namespace)
	if err != nil {
		return nil, err
	}
	return NewNetlinkResolver(h), nil
}

// Gateway implements Resolver. A missing interface has no gateway.
func (n *NetlinkResolver) Gateway(ctx context.Context, iface string) (string, error) {
	link, err := n.nl.LinkByName(iface)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}

	for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		routes, err := n.nl.RouteList(link, family)
		if err != nil {
			return "", err
		}
		for _, r := range routes {
			if isDefaultRoute(r) && r.Gw != nil {
				return r.Gw.String(), nil
			}
		}
	}
	return "", nil
}

func isDefaultRoute(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0
}

// NetlinkSource ticks on every default-route update from the kernel.
type NetlinkSource struct {
	Namespace string
	Logger    *logging.Logger
}

// Start implements Source.
func (s NetlinkSource) Start(ctx context.Context) (<-chan struct{}, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.WithComponent("monitor")
	}

	opts := netlink.RouteSubscribeOptions{
		ErrorCallback: func(err error) {
			logger.Warn("route subscription error", "error", err)
		},
	}
	if s.Namespace != "" {
		ns, err := netns.GetFromName(s.Namespace)
		if err != nil {
			return nil, err
		}
		defer ns.Close()
		opts.Namespace = &ns
	}

	updates := make(chan netlink.RouteUpdate, 64)
	done := make(chan struct{})
	if err := netlink.RouteSubscribeWithOptions(updates, done, opts); err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				if isDefaultRoute(u.Route) {
					notify(out)
				}
			}
		}
	}()
	return out, nil
}
