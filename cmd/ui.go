package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/tui"
)

// RunUI runs the interactive terminal UI with the gateway monitor.
func RunUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	logFile := fs.String("log-file", "", "Write logs to this file (the UI owns the terminal)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogging(cfg, logOut)

	bridge := tui.NewBridge()
	a, err := newApp(cfg, logger, bridge)
	if err != nil {
		return err
	}
	defer a.close()

	mon, err := a.newMonitor()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(tui.NewModel(a.engine), tea.WithAltScreen())
	bridge.Attach(p)

	a.serveMetrics(ctx)
	a.engine.Start(ctx)
	go func() {
		if err := mon.Run(ctx); err != nil {
			logger.Error("gateway monitor stopped", "error", err)
			p.Send(tui.NoticeMsg{Error: true, Context: "Monitor", Detail: err.Error()})
		}
	}()

	_, runErr := p.Run()
	bridge.Close()
	cancel()

	if runErr != nil {
		printRecentLogs(os.Stderr, 20)
		return runErr
	}
	return nil
}

// printRecentLogs dumps the tail of the in-memory log after the UI exits.
func printRecentLogs(w io.Writer, n int) {
	for _, e := range logging.Buffer().GetLast(n) {
		Printer.Fprintf(w, "%s %-5s %s %s\n", e.Timestamp.Format("15:04:05"), e.Level, e.Source, e.Message)
	}
}
