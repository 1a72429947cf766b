//go:build linux

package routing

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"grimm.is/routepin/internal/logging"
)

// Netlinker is the subset of netlink used to read routes.
type Netlinker interface {
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
	LinkByIndex(index int) (netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
}

var _ Netlinker = (*netlink.Handle)(nil)

// OpenNetlink returns a handle in the named network namespace, or in the
// current namespace when namespace is empty.
func OpenNetlink(namespace string) (*netlink.Handle, error) {
	if namespace == "" {
		return netlink.NewHandle()
	}
	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return nil, fmt.Errorf("netns %s: %w", namespace, err)
	}
	defer ns.Close()
	return netlink.NewHandleAt(ns)
}

// NetlinkInspector reads the table over netlink.
type NetlinkInspector struct {
	nl     Netlinker
	logger *logging.Logger
}

// NewNetlinkInspector creates an inspector backed by nl.
func NewNetlinkInspector(nl Netlinker) *NetlinkInspector {
	return &NetlinkInspector{nl: nl, logger: logging.WithComponent("routing")}
}

// NewDefaultInspector returns the netlink inspector for namespace.
func NewDefaultInspector(namespace string) (Inspector, error) {
	h, err := OpenNetlink(namespace)
	if err != nil {
		return nil, err
	}
	return NewNetlinkInspector(h), nil
}

// ListRoutesViaGateway implements Inspector.
func (n *NetlinkInspector) ListRoutesViaGateway(ctx context.Context, gateway string) ([]LiveRouteEntry, error) {
	entries := []LiveRouteEntry{}
	if gateway == "" {
		return entries, nil
	}
	gw := net.ParseIP(gateway)
	if gw == nil {
		return entries, nil
	}

	routes, err := n.nl.RouteList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, &TableReadError{Err: err}
	}

	for _, r := range routes {
		if r.Dst == nil || r.Gw == nil || !r.Gw.Equal(gw) {
			continue
		}
		if ones, _ := r.Dst.Mask.Size(); ones == 0 {
			continue
		}
		dst := r.Dst.String()
		fields := []string{dst, r.Gw.String()}
		if link, err := n.nl.LinkByIndex(r.LinkIndex); err == nil {
			fields = append(fields, link.Attrs().Name)
		}
		entries = append(entries, LiveRouteEntry{
			Destination: dst,
			Gateway:     r.Gw.String(),
			Fields:      fields,
			Raw:         formatNetlinkRow(fields),
		})
	}
	n.logger.Debug("read routing table", "gateway", gateway, "entries", len(entries))
	return entries, nil
}

func formatNetlinkRow(fields []string) string {
	if len(fields) > 2 {
		return fmt.Sprintf("%-20s %-16s %s", fields[0], fields[1], fields[2])
	}
	return fmt.Sprintf("%-20s %s", fields[0], fields[1])
}
