//go:build darwin

package monitor

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// RIBResolver reads the default route scoped to the interface from the
// routing information base.
type RIBResolver struct{}

// NewDefaultResolver returns the platform resolver. namespace is linux-only.
func NewDefaultResolver(namespace string) (Resolver, error) {
	return RIBResolver{}, nil
}

// Gateway implements Resolver.
func (RIBResolver) Gateway(ctx context.Context, iface string) (string, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		if strings.Contains(err.Error(), "no such network interface") {
			return "", nil
		}
		return "", err
	}

	rib, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeRoute, 0)
	if err != nil {
		return "", err
	}
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		return "", err
	}
	return defaultGateway(msgs, ifi.Index), nil
}

// defaultGateway finds the first default route on ifIndex, IPv4 before IPv6.
func defaultGateway(msgs []route.Message, ifIndex int) string {
	var v6 string
	for _, msg := range msgs {
		rm, ok := msg.(*route.RouteMessage)
		if !ok || rm.Index != ifIndex || rm.Flags&unix.RTF_GATEWAY == 0 {
			continue
		}
		if len(rm.Addrs) <= unix.RTAX_GATEWAY || !isZeroAddr(rm.Addrs[unix.RTAX_DST]) {
			continue
		}
		if len(rm.Addrs) > unix.RTAX_NETMASK && !isZeroAddr(rm.Addrs[unix.RTAX_NETMASK]) {
			continue
		}
		switch gw := rm.Addrs[unix.RTAX_GATEWAY].(type) {
		case *route.Inet4Addr:
			return netip.AddrFrom4(gw.IP).String()
		case *route.Inet6Addr:
			if v6 == "" {
				v6 = netip.AddrFrom16(gw.IP).String()
			}
		}
	}
	return v6
}

func isZeroAddr(a route.Addr) bool {
	switch v := a.(type) {
	case nil:
		return true
	case *route.Inet4Addr:
		return v.IP == [4]byte{}
	case *route.Inet6Addr:
		return v.IP == [16]byte{}
	default:
		return false
	}
}
