package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all routepin metrics. A nil *Registry is valid and records
// nothing, so components can take one optionally.
type Registry struct {
	Commands          *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CredentialPrompts prometheus.Counter
	GatewayChanges    prometheus.Counter
	Reanchors         *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	PinnedRoutes      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// Get returns the process-wide registry backed by the default prometheus registerer.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return registry
}

// New returns a registry with its own prometheus registry, for tests and
// embedding.
func New() *Registry {
	reg := prometheus.NewRegistry()
	return newRegistry(reg, reg)
}

func newRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Registry {
	factory := promauto.With(reg)
	r := &Registry{gatherer: g}

	r.Commands = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "routepin_commands_total",
		Help: "Privileged route commands executed, by kind and result",
	}, []string{"kind", "result"})

	r.CommandDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routepin_command_duration_seconds",
		Help:    "Wall time of privileged route commands",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	r.CredentialPrompts = factory.NewCounter(prometheus.CounterOpts{
		Name: "routepin_credential_prompts_total",
		Help: "Times the user was asked for the elevation credential",
	})

	r.GatewayChanges = factory.NewCounter(prometheus.CounterOpts{
		Name: "routepin_gateway_changes_total",
		Help: "Gateway changes observed by the monitor",
	})

	r.Reanchors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "routepin_reanchors_total",
		Help: "Re-anchoring runs, by outcome",
	}, []string{"outcome"})

	r.Operations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "routepin_operations_total",
		Help: "Reconciler operations, by kind and outcome",
	}, []string{"kind", "outcome"})

	r.PinnedRoutes = factory.NewGauge(prometheus.GaugeOpts{
		Name: "routepin_pinned_routes",
		Help: "Number of destinations in the desired state",
	})

	return r
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(kind string, err error, d time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.Commands.WithLabelValues(kind, result).Inc()
	r.CommandDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncCredentialPrompt records a credential prompt.
func (r *Registry) IncCredentialPrompt() {
	if r == nil {
		return
	}
	r.CredentialPrompts.Inc()
}

// IncGatewayChange records an observed gateway change.
func (r *Registry) IncGatewayChange() {
	if r == nil {
		return
	}
	r.GatewayChanges.Inc()
}

// RecordOperation records a finished reconciler operation.
func (r *Registry) RecordOperation(kind, outcome string) {
	if r == nil {
		return
	}
	r.Operations.WithLabelValues(kind, outcome).Inc()
	if kind == "reanchor" {
		r.Reanchors.WithLabelValues(outcome).Inc()
	}
}

// SetPinnedRoutes updates the pinned route gauge.
func (r *Registry) SetPinnedRoutes(n int) {
	if r == nil {
		return
	}
	r.PinnedRoutes.Set(float64(n))
}

// Handler exposes the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is cancelled. extra
// mounts additional handlers (health probes) on the same listener.
func (r *Registry) Serve(ctx context.Context, addr string, extra map[string]http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	for path, h := range extra {
		mux.Handle(path, h)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
