package cmd

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/routepin/internal/events"
	"grimm.is/routepin/internal/frontend"
	"grimm.is/routepin/internal/logging"
)

// RunWatch runs the engine and gateway monitor headless until interrupted,
// printing engine output to stdout.
func RunWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, os.Stderr)

	a, err := newApp(cfg, logger, frontend.NewConsole(os.Stdout, nil))
	if err != nil {
		return err
	}
	defer a.close()

	mon, err := a.newMonitor()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.serveMetrics(ctx)
	go logEvents(ctx, a.hub, logger.WithComponent("events"))

	a.engine.Start(ctx)
	logger.Info("watching gateway", "interface", cfg.Interface, "mode", cfg.Monitor.Mode)
	if err := mon.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// logEvents writes hub activity to the log until ctx is done.
func logEvents(ctx context.Context, hub *events.Hub, logger *logging.Logger) {
	ch := hub.Subscribe(64, events.EventGatewayChanged, events.EventOperationDone)
	defer hub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			switch d := ev.Data.(type) {
			case events.GatewayChangedData:
				logger.Info("gateway changed", "interface", d.Interface, "from", d.Previous, "to", d.Gateway)
			case events.OperationDoneData:
				logger.Debug("operation done", "op", d.ID, "kind", d.Kind, "outcome", d.Outcome,
					"succeeded", len(d.Succeeded), "failed", len(d.Failed))
			}
		}
	}
}
