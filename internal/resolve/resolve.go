// Package resolve turns user-entered hostnames into addresses for host routes.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// ResolutionError reports that a host could not be resolved. It only fails
// the token it belongs to.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var errNoAddress = errors.New("no address found")

// Resolver maps a hostname or address literal to one address.
type Resolver interface {
	Resolve(ctx context.Context, host string) (netip.Addr, error)
}

// New returns a DNSResolver for server, or the system resolver when server is empty.
func New(server string, timeout time.Duration) Resolver {
	if server == "" {
		return NewSystemResolver()
	}
	return NewDNSResolver(server, timeout)
}

// HostDestination renders addr as a host route destination (/32 or /128).
func HostDestination(addr netip.Addr) string {
	return netip.PrefixFrom(addr, addr.BitLen()).String()
}

func literal(host string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// SystemResolver uses the platform resolver, preferring IPv4 like gethostbyname.
type SystemResolver struct {
	r *net.Resolver
}

// NewSystemResolver returns a resolver backed by net.DefaultResolver.
func NewSystemResolver() *SystemResolver {
	return &SystemResolver{r: net.DefaultResolver}
}

// Resolve implements Resolver.
func (s *SystemResolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, ok := literal(host); ok {
		return addr, nil
	}

	addrs, err := s.r.LookupNetIP(ctx, "ip4", host)
	if err != nil || len(addrs) == 0 {
		addrs, err = s.r.LookupNetIP(ctx, "ip", host)
	}
	if err != nil {
		return netip.Addr{}, &ResolutionError{Host: host, Err: err}
	}
	if len(addrs) == 0 {
		return netip.Addr{}, &ResolutionError{Host: host, Err: errNoAddress}
	}
	return addrs[0].Unmap(), nil
}

// DNSResolver queries one explicit DNS server, A first then AAAA.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver for server ("host" or "host:port").
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSResolver{server: server, client: &dns.Client{Timeout: timeout}}
}

// Resolve implements Resolver.
func (d *DNSResolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, ok := literal(host); ok {
		return addr, nil
	}

	var lastErr error = errNoAddress
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := d.query(ctx, host, qtype)
		if err == nil {
			return addr, nil
		}
		lastErr = err
	}
	return netip.Addr{}, &ResolutionError{Host: host, Err: lastErr}
}

func (d *DNSResolver) query(ctx context.Context, host string, qtype uint16) (netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := d.client.ExchangeContext(ctx, m, d.server)
	if err != nil {
		return netip.Addr{}, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("%s from %s", dns.RcodeToString[in.Rcode], d.server)
	}

	for _, rr := range in.Answer {
		var ip net.IP
		switch v := rr.(type) {
		case *dns.A:
			ip = v.A
		case *dns.AAAA:
			ip = v.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			return addr.Unmap(), nil
		}
	}
	return netip.Addr{}, errNoAddress
}
