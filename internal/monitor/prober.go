package monitor

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Prober checks that a gateway answers. Results are informational only.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// PingProber sends a single ICMP echo via pro-bing.
type PingProber struct {
	Timeout    time.Duration
	Privileged bool
}

// Probe implements Prober.
func (p PingProber) Probe(ctx context.Context, addr string) error {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = p.Timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = time.Second
	}
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return err
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return fmt.Errorf("packet loss")
	}
	return nil
}
