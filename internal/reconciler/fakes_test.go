package reconciler

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"grimm.is/routepin/internal/metrics"
	"grimm.is/routepin/internal/monitor"
	"grimm.is/routepin/internal/privexec"
	"grimm.is/routepin/internal/resolve"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error

	// failOnce errors are returned for the first matching call only.
	failOnce map[string]error
	delay    time.Duration
	running  atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeExecutor) Run(ctx context.Context, spec routing.CommandSpec) (privexec.Output, error) {
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, spec.String())
	if err, ok := f.failOnce[spec.String()]; ok {
		delete(f.failOnce, spec.String())
		return privexec.Output{}, err
	}
	return privexec.Output{}, f.fail[spec.String()]
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memStore struct {
	mu    sync.Mutex
	st    state.DesiredState
	saves int
	err   error
}

func (m *memStore) Load() state.DesiredState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Clone()
}

func (m *memStore) Save(st state.DesiredState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return &state.PersistenceError{Path: "routes.json", Err: m.err}
	}
	m.st = st.Clone()
	m.saves++
	return nil
}

func (m *memStore) Saved() (state.DesiredState, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Clone(), m.saves
}

type staticResolver map[string]string

func (r staticResolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	if s, ok := r[host]; ok {
		return netip.MustParseAddr(s), nil
	}
	return netip.Addr{}, &resolve.ResolutionError{Host: host, Err: errors.New("no such host")}
}

type recordingFrontend struct {
	NopFrontend
	mu       sync.Mutex
	infos    []string
	errs     []string
	gateways []string
	views    [][]string
}

func (f *recordingFrontend) ReportError(context, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, context+": "+detail)
}

func (f *recordingFrontend) ReportInfo(context, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, context+": "+detail)
}

func (f *recordingFrontend) OnGatewayUpdated(gw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateways = append(f.gateways, gw)
}

func (f *recordingFrontend) OnRouteViewUpdated(lines []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, lines)
}

func (f *recordingFrontend) Infos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.infos...)
}

func (f *recordingFrontend) Errors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errs...)
}

func (f *recordingFrontend) Gateways() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.gateways...)
}

func anchored(gw string, routes ...string) state.DesiredState {
	st := state.Empty()
	st.SetGateway(gw)
	for _, r := range routes {
		st.AddRoute(r)
	}
	return st
}

type harness struct {
	engine    *Engine
	exec      *fakeExecutor
	store     *memStore
	frontend  *recordingFrontend
	inspector *routing.MockInspector
	metrics   *metrics.Registry
}

type harnessOption func(*Options)

// newHarness starts an engine whose interface currently has gateway gw.
func newHarness(t *testing.T, stored state.DesiredState, gw string, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		exec:      &fakeExecutor{fail: map[string]error{}, failOnce: map[string]error{}},
		store:     &memStore{st: stored},
		frontend:  &recordingFrontend{},
		inspector: new(routing.MockInspector),
		metrics:   metrics.New(),
	}
	h.inspector.On("ListRoutesViaGateway", mock.Anything).Return([]routing.LiveRouteEntry{}, nil).Maybe()

	gwRes := new(monitor.MockResolver)
	gwRes.On("Gateway", "en0").Return(gw, nil)

	o := Options{
		Interface: "en0",
		Store:     h.store,
		Executor:  h.exec,
		Inspector: h.inspector,
		Resolver: staticResolver{
			"a.example": "93.184.216.34",
			"b.example": "93.184.216.35",
		},
		Gateway:  gwRes,
		Frontend: h.frontend,
		Metrics:  h.metrics,
	}
	for _, fn := range opts {
		fn(&o)
	}

	h.engine = New(o)
	h.engine.Start(context.Background())
	t.Cleanup(h.engine.Stop)
	return h
}

func scrape(t *testing.T, h *harness) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}
