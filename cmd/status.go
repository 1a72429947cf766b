package cmd

import (
	"context"
	"flag"
	"io"
	"os"

	"golang.org/x/text/message"

	"grimm.is/routepin/internal/i18n"
	"grimm.is/routepin/internal/reconciler"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

// statusReport is everything the status command prints.
type statusReport struct {
	Interface string
	Gateway   string
	StateFile string
	State     state.DesiredState
	Live      []routing.LiveRouteEntry
	LiveErr   error
	ShowDrift bool
	Drift     string
	Recent    []state.Record
}

// RunStatus prints the current gateway, the anchored gateway, pinned and live
// route counts and, with -diff, the drift between them.
func RunStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	diff := fs.Bool("diff", false, "Show drift between pinned and live routes")
	fs.BoolVar(diff, "d", false, "Show drift (short)")
	recent := fs.Int("recent", 5, "Number of journal entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, os.Stderr)

	a, err := newApp(cfg, logger, reconciler.NopFrontend{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	r := statusReport{
		Interface: cfg.Interface,
		StateFile: a.store.Path(),
		State:     a.engine.State(),
		ShowDrift: *diff,
	}

	gw, err := a.gateway.Gateway(ctx, cfg.Interface)
	if err != nil {
		logger.Warn("gateway resolution failed", "interface", cfg.Interface, "error", err)
	}
	r.Gateway = gw

	if gw != "" {
		r.Live, r.LiveErr = a.inspector.ListRoutesViaGateway(ctx, gw)
	}
	if *diff && r.LiveErr == nil {
		if r.Drift, err = routing.DriftReport(r.State.Routes, r.Live); err != nil {
			return err
		}
	}

	if a.journal != nil && *recent > 0 {
		if r.Recent, err = a.journal.Recent(ctx, *recent); err != nil {
			logger.Warn("failed to read journal", "error", err)
		}
	}

	printStatus(os.Stdout, Printer, r)
	return nil
}

func printStatus(w io.Writer, p *message.Printer, r statusReport) {
	gw := r.Gateway
	if gw == "" {
		gw = "None"
	}
	p.Fprintf(w, i18n.MsgGateway, gw+" ("+r.Interface+")")

	anchor := p.Sprintf(i18n.MsgNotAnchored)
	if r.State.Anchored() {
		anchor = r.State.GatewayString()
	}
	p.Fprintf(w, i18n.MsgAnchored, anchor)
	p.Fprintf(w, i18n.MsgStateFile, r.StateFile)
	p.Fprintf(w, i18n.MsgPinnedCount, len(r.State.Routes))

	switch {
	case r.LiveErr != nil:
		p.Fprintf(w, "Live routes unavailable: %v\n", r.LiveErr)
	case r.Gateway != "":
		p.Fprintf(w, i18n.MsgLiveCount, len(r.Live))
	}

	if r.ShowDrift && r.LiveErr == nil {
		p.Fprintln(w)
		if r.Drift == "" {
			p.Fprintf(w, i18n.MsgNoDrift)
		} else {
			io.WriteString(w, r.Drift)
		}
	}

	if len(r.Recent) > 0 {
		p.Fprintln(w)
		p.Fprintf(w, i18n.MsgRecentHeader)
		for _, rec := range r.Recent {
			p.Fprintf(w, "  %s  %-9s %-16s %d ok, %d failed  %s\n",
				rec.FinishedAt.Format("2006-01-02 15:04:05"), rec.Kind, rec.Outcome,
				rec.Succeeded, rec.Failed, rec.Input)
		}
	}
}
