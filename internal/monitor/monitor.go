// Package monitor watches one interface and reports when its gateway changes.
//
// A Monitor resolves the gateway once to seed its last-notified value and
// hands that first Observation to OnSeed, then re-resolves on every tick from
// its Sources. OnChange fires only when the resolved value differs from the
// last one notified. An empty gateway means
// the interface has no default route and is itself a valid value.
package monitor

import (
	"context"
	"sync"
	"time"

	"grimm.is/routepin/internal/clock"
	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/metrics"
)

// Observation is one resolved gateway for an interface.
type Observation struct {
	Interface string
	Gateway   string // empty when the interface has no gateway
	Time      time.Time
}

// Resolver looks up the current default gateway of an interface.
// It returns "" with a nil error when there is none.
type Resolver interface {
	Gateway(ctx context.Context, iface string) (string, error)
}

// Source yields "re-resolve now" ticks until ctx is done, then closes the channel.
type Source interface {
	Start(ctx context.Context) (<-chan struct{}, error)
}

// Options configures a Monitor.
type Options struct {
	Interface string
	Resolver  Resolver
	Sources   []Source
	Prober    Prober
	Clock     clock.Clock
	Metrics   *metrics.Registry
	Logger    *logging.Logger
	OnChange  func(Observation)
	OnSeed    func(Observation)
}

// Monitor tracks the gateway of one interface.
type Monitor struct {
	iface    string
	resolver Resolver
	sources  []Source
	prober   Prober
	clock    clock.Clock
	metrics  *metrics.Registry
	logger   *logging.Logger
	onChange func(Observation)
	onSeed   func(Observation)

	mu     sync.Mutex
	last   string
	seeded bool
}

// New creates a Monitor. A zero Clock uses the wall clock.
func New(opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("monitor")
	}
	return &Monitor{
		iface:    opts.Interface,
		resolver: opts.Resolver,
		sources:  opts.Sources,
		prober:   opts.Prober,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		onSeed:   opts.OnSeed,
	}
}

// Interface returns the monitored interface name.
func (m *Monitor) Interface() string { return m.iface }

// Current returns the last notified gateway and whether one has been seeded.
func (m *Monitor) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.seeded
}

// Seed resolves the gateway and records it as last notified. The observation
// goes to OnSeed, not OnChange.
func (m *Monitor) Seed(ctx context.Context) (Observation, error) {
	gw, err := m.resolver.Gateway(ctx, m.iface)
	if err != nil {
		return Observation{}, err
	}

	m.mu.Lock()
	m.last = gw
	m.seeded = true
	m.mu.Unlock()

	return m.seed(gw), nil
}

func (m *Monitor) seed(gw string) Observation {
	m.logger.Info("gateway seeded", "interface", m.iface, "gateway", display(gw))
	obs := m.observation(gw)
	if m.onSeed != nil {
		m.onSeed(obs)
	}
	return obs
}

// Check re-resolves the gateway and notifies when it changed. It reports
// whether an event was emitted. An unseeded monitor seeds instead.
func (m *Monitor) Check(ctx context.Context) bool {
	gw, err := m.resolver.Gateway(ctx, m.iface)
	if err != nil {
		m.logger.Warn("gateway resolution failed", "interface", m.iface, "error", err)
		return false
	}

	m.mu.Lock()
	if !m.seeded {
		m.last = gw
		m.seeded = true
		m.mu.Unlock()
		m.seed(gw)
		return false
	}
	if gw == m.last {
		m.mu.Unlock()
		return false
	}
	prev := m.last
	m.last = gw
	m.mu.Unlock()

	m.logger.Info("gateway changed", "interface", m.iface, "from", display(prev), "to", display(gw))
	m.metrics.IncGatewayChange()

	if m.prober != nil && gw != "" {
		go m.probe(gw)
	}

	obs := m.observation(gw)
	if m.onChange != nil {
		m.onChange(obs)
	}
	return true
}

// Run seeds the monitor and re-resolves on every source tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.Seed(ctx); err != nil {
		m.logger.Warn("initial gateway resolution failed", "interface", m.iface, "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	ticks := make(chan struct{}, 1)
	for _, src := range m.sources {
		ch, err := src.Start(ctx)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range ch {
				notify(ticks)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) probe(gw string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.prober.Probe(ctx, gw); err != nil {
		m.logger.Warn("gateway unreachable", "gateway", gw, "error", err)
		return
	}
	m.logger.Info("gateway reachable", "gateway", gw)
}

func (m *Monitor) observation(gw string) Observation {
	return Observation{Interface: m.iface, Gateway: gw, Time: m.clock.Now()}
}

// notify performs a coalescing send.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func display(gw string) string {
	if gw == "" {
		return "none"
	}
	return gw
}
