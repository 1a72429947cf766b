package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/routepin/internal/clock"
	"grimm.is/routepin/internal/metrics"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu  sync.Mutex
	obs []Observation
	ch  chan Observation
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Observation, 16)}
}

func (r *recorder) onChange(o Observation) {
	r.mu.Lock()
	r.obs = append(r.obs, o)
	r.mu.Unlock()
	r.ch <- o
}

func (r *recorder) all() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Observation(nil), r.obs...)
}

func newTestMonitor(res Resolver, rec *recorder, clk clock.Clock) *Monitor {
	return New(Options{
		Interface: "en0",
		Resolver:  res,
		Clock:     clk,
		Metrics:   metrics.New(),
		OnChange:  rec.onChange,
	})
}

func TestMonitor_SeedGoesToOnSeed(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil)
	rec := newRecorder()
	seeds := newRecorder()
	m := New(Options{
		Interface: "en0",
		Resolver:  res,
		Clock:     clock.NewMockClock(t0),
		OnChange:  rec.onChange,
		OnSeed:    seeds.onChange,
	})

	obs, err := m.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Observation{Interface: "en0", Gateway: "192.168.1.1", Time: t0}, obs)
	assert.Empty(t, rec.all())
	assert.Equal(t, []Observation{obs}, seeds.all())

	gw, seeded := m.Current()
	assert.True(t, seeded)
	assert.Equal(t, "192.168.1.1", gw)
}

func TestMonitor_EmitsOnlyOnChange(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Twice()
	res.On("Gateway", "en0").Return("10.0.0.1", nil).Once()
	res.On("Gateway", "en0").Return("", nil).Twice()
	res.On("Gateway", "en0").Return("10.0.0.1", nil).Once()

	clk := clock.NewMockClock(t0)
	rec := newRecorder()
	m := newTestMonitor(res, rec, clk)

	_, err := m.Seed(context.Background())
	require.NoError(t, err)

	var emitted []bool
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		emitted = append(emitted, m.Check(context.Background()))
	}

	assert.Equal(t, []bool{false, true, true, false, true}, emitted)
	got := rec.all()
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.1", got[0].Gateway)
	assert.Equal(t, t0.Add(2*time.Second), got[0].Time)
	assert.Equal(t, "", got[1].Gateway)
	assert.Equal(t, "10.0.0.1", got[2].Gateway)
	res.AssertExpectations(t)
}

func TestMonitor_ResolutionErrorSkipped(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Once()
	res.On("Gateway", "en0").Return("", errors.New("netlink: permission denied")).Once()
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Once()

	rec := newRecorder()
	m := newTestMonitor(res, rec, clock.NewMockClock(t0))
	_, err := m.Seed(context.Background())
	require.NoError(t, err)

	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Check(context.Background()))
	assert.Empty(t, rec.all())
}

func TestMonitor_UnseededCheckSeeds(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("", errors.New("interface busy")).Once()
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Once()
	res.On("Gateway", "en0").Return("192.168.2.1", nil).Once()

	rec := newRecorder()
	m := newTestMonitor(res, rec, clock.NewMockClock(t0))

	_, err := m.Seed(context.Background())
	require.Error(t, err)
	_, seeded := m.Current()
	assert.False(t, seeded)

	assert.False(t, m.Check(context.Background()))
	assert.True(t, m.Check(context.Background()))
	assert.Len(t, rec.all(), 1)
}

func TestMonitor_LateSeedGoesToOnSeed(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("", errors.New("netlink: resource busy")).Once()
	res.On("Gateway", "en0").Return("10.0.0.1", nil).Once()

	seeds := newRecorder()
	m := New(Options{Interface: "en0", Resolver: res, OnSeed: seeds.onChange})

	_, err := m.Seed(context.Background())
	require.Error(t, err)
	assert.Empty(t, seeds.all())

	assert.False(t, m.Check(context.Background()))
	got := seeds.all()
	require.Len(t, got, 1)
	assert.Equal(t, "10.0.0.1", got[0].Gateway)
}

func TestMonitor_ProbesNewGateway(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Once()
	res.On("Gateway", "en0").Return("10.0.0.1", nil).Once()
	res.On("Gateway", "en0").Return("", nil).Once()

	probed := make(chan string, 2)
	prober := new(MockProber)
	prober.On("Probe", "10.0.0.1").Return(nil).Run(func(args mock.Arguments) {
		probed <- args.String(0)
	})

	rec := newRecorder()
	m := New(Options{Interface: "en0", Resolver: res, Prober: prober, OnChange: rec.onChange})
	_, err := m.Seed(context.Background())
	require.NoError(t, err)

	require.True(t, m.Check(context.Background()))
	select {
	case gw := <-probed:
		assert.Equal(t, "10.0.0.1", gw)
	case <-time.After(time.Second):
		t.Fatal("prober not called")
	}

	// No gateway, nothing to probe.
	require.True(t, m.Check(context.Background()))
	prober.AssertNumberOfCalls(t, "Probe", 1)
}

func TestMonitor_RunReactsToTicks(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil).Once()
	res.On("Gateway", "en0").Return("172.20.10.1", nil)

	src := NewChanSource()
	rec := newRecorder()
	m := New(Options{Interface: "en0", Resolver: res, Sources: []Source{src}, OnChange: rec.onChange})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	src.C <- struct{}{}
	select {
	case obs := <-rec.ch:
		assert.Equal(t, "172.20.10.1", obs.Gateway)
		assert.Equal(t, "en0", obs.Interface)
	case <-time.After(2 * time.Second):
		t.Fatal("no change observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

type ctxSource struct{ ctx context.Context }

func (s *ctxSource) Start(ctx context.Context) (<-chan struct{}, error) {
	s.ctx = ctx
	ch := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

type brokenSource struct{}

func (brokenSource) Start(context.Context) (<-chan struct{}, error) {
	return nil, errors.New("watch: too many open files")
}

func TestMonitor_RunStopsStartedSourcesOnError(t *testing.T) {
	res := new(MockResolver)
	res.On("Gateway", "en0").Return("192.168.1.1", nil)

	started := &ctxSource{}
	m := New(Options{Interface: "en0", Resolver: res, Sources: []Source{started, brokenSource{}}})

	err := m.Run(context.Background())
	require.EqualError(t, err, "watch: too many open files")
	require.NotNil(t, started.ctx)
	assert.ErrorIs(t, started.ctx.Err(), context.Canceled)
}

func TestPollSource_Ticks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := PollSource{Interval: 10 * time.Millisecond}.Start(ctx)
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no tick")
	}

	cancel()
	for range ch {
	}
}
