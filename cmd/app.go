package cmd

import (
	"context"
	"fmt"
	"net/http"

	"grimm.is/routepin/internal/clock"
	"grimm.is/routepin/internal/config"
	"grimm.is/routepin/internal/events"
	"grimm.is/routepin/internal/health"
	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/metrics"
	"grimm.is/routepin/internal/monitor"
	"grimm.is/routepin/internal/privexec"
	"grimm.is/routepin/internal/reconciler"
	"grimm.is/routepin/internal/resolve"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	store     *state.Store
	journal   *state.Journal
	exec      *privexec.Executor
	inspector routing.Inspector
	gateway   monitor.Resolver
	hub       *events.Hub
	metrics   *metrics.Registry
	engine    *reconciler.Engine
}

// newApp wires the engine for cfg. fe receives engine output and answers
// credential prompts.
func newApp(cfg *config.Config, logger *logging.Logger, fe reconciler.Frontend) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   state.NewStore(cfg.StateFile, logger.WithComponent("state")),
		hub:     events.NewHub(),
		metrics: metrics.Get(),
	}

	inspector, err := routing.NewDefaultInspector(cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open route table: %w", err)
	}
	a.inspector = inspector

	gw, err := monitor.NewDefaultResolver(cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway resolver: %w", err)
	}
	a.gateway = gw

	a.exec = privexec.New(privexec.Options{
		Prompter: fe,
		Timeout:  cfg.Timeout(),
		SudoPath: cfg.SudoPath,
		Metrics:  a.metrics,
		Logger:   logger.WithComponent("privexec"),
	})

	opts := reconciler.Options{
		Interface: cfg.Interface,
		Store:     a.store,
		Executor:  a.exec,
		Inspector: a.inspector,
		Resolver:  resolve.New(cfg.DNSServer, cfg.Timeout()),
		Gateway:   a.gateway,
		Frontend:  fe,
		Hub:       a.hub,
		Metrics:   a.metrics,
		Logger:    logger.WithComponent("reconciler"),
	}

	if cfg.JournalFile != "" {
		j, err := state.OpenJournal(cfg.JournalFile, clock.RealClock{})
		if err != nil {
			logger.Warn("journal disabled", "path", cfg.JournalFile, "error", err)
		} else {
			a.journal = j
			opts.Journal = j
		}
	}

	a.engine = reconciler.New(opts)
	return a, nil
}

// sources builds the gateway-change sources for the configured mode.
func sources(cfg *config.Config, logger *logging.Logger) ([]monitor.Source, error) {
	interval := cfg.PollInterval()
	switch cfg.Monitor.Mode {
	case config.ModePoll:
		return []monitor.Source{monitor.PollSource{Interval: interval}}, nil
	case config.ModeLogTail:
		return []monitor.Source{monitor.LogTailSource{
			Path:     cfg.Monitor.LogFile,
			Keyword:  cfg.Monitor.Keyword,
			Interval: interval,
			Logger:   logger,
		}}, nil
	case config.ModeNetlink:
		return []monitor.Source{monitor.NetlinkSource{
			Namespace: cfg.Namespace,
			Logger:    logger,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown monitor mode %q", cfg.Monitor.Mode)
	}
}

// newMonitor creates a gateway monitor that feeds changes to the engine.
func (a *app) newMonitor() (*monitor.Monitor, error) {
	logger := a.logger.WithComponent("monitor")
	srcs, err := sources(a.cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := monitor.Options{
		Interface: a.cfg.Interface,
		Resolver:  a.gateway,
		Sources:   srcs,
		Metrics:   a.metrics,
		Logger:    logger,
		OnChange: func(obs monitor.Observation) {
			a.engine.Submit(reconciler.GatewayChangedOp(obs.Gateway))
		},
		OnSeed: func(obs monitor.Observation) {
			a.engine.Submit(reconciler.GatewaySeededOp(obs.Gateway))
		},
	}
	if a.cfg.Monitor.Probe {
		opts.Prober = monitor.PingProber{}
	}
	return monitor.New(opts), nil
}

// healthChecker registers the routepin health checks.
func (a *app) healthChecker() *health.Checker {
	gateway := func(ctx context.Context) (string, error) {
		return a.gateway.Gateway(ctx, a.cfg.Interface)
	}
	pinned := func() []string { return a.engine.State().Routes }

	c := health.NewChecker(nil)
	c.Register("state", health.CheckStateDir(a.store.Path()))
	c.Register("gateway", health.CheckGateway(a.cfg.Interface, gateway))
	c.Register("routes", health.CheckRoutes(a.inspector, gateway, pinned))
	return c
}

// serveMetrics exposes /metrics, /healthz and /readyz when metrics_listen is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsListen == "" {
		return
	}
	checker := a.healthChecker()
	extra := map[string]http.Handler{
		"/healthz": checker.Handler(),
		"/readyz":  checker.ReadinessHandler(),
	}
	go func() {
		a.logger.Info("metrics endpoint listening", "addr", a.cfg.MetricsListen)
		if err := a.metrics.Serve(ctx, a.cfg.MetricsListen, extra); err != nil {
			a.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

func (a *app) close() {
	a.engine.Stop()
	a.exec.Forget()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("journal close failed", "error", err)
		}
	}
}
