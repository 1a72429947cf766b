package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"grimm.is/routepin/internal/brand"
	"grimm.is/routepin/internal/frontend"
	"grimm.is/routepin/internal/reconciler"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

// RunAdd pins the given hosts to the current gateway.
func RunAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), ";")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("usage: %s add [-c config] <host>[;<host>...]\nExample: %s add example.com 10.8.0.0/16", brand.BinaryName, brand.BinaryName)
	}
	return runOnce(g, reconciler.AddOp(text))
}

// RunDelete unpins the given destinations.
func RunDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	literal := fs.Bool("literal", false, "Treat the argument as one destination, even if it contains ';'")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), ";")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("usage: %s delete [-c config] <dest>[;<dest>...]", brand.BinaryName)
	}
	op := reconciler.DeleteOp(text)
	if *literal {
		if fs.NArg() != 1 {
			return fmt.Errorf("-literal takes exactly one destination")
		}
		op = reconciler.DeleteLiteralOp(fs.Arg(0))
	}
	return runOnce(g, op)
}

// runOnce starts an engine, runs op after the startup reconcile and stops.
func runOnce(g *Globals, op reconciler.Operation) error {
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

	a.engine.Start(context.Background())
	res := <-a.engine.Submit(op)
	printResult(os.Stdout, res)
	return resultError(res)
}

func printResult(w io.Writer, res reconciler.Result) {
	Printer.Fprintf(w, "%s: %s (%d succeeded, %d failed)\n",
		res.Op.Kind, res.Outcome(), len(res.Succeeded), len(res.Failed))
}

// resultError turns a failed or partially failed result into an exit error.
func resultError(res reconciler.Result) error {
	switch res.Outcome() {
	case reconciler.OutcomeFailed:
		return fmt.Errorf("%s failed: %w", res.Op.Kind, res.Err())
	case reconciler.OutcomePartiallyFailed:
		return fmt.Errorf("%s partially failed (%d of %d): %w",
			res.Op.Kind, len(res.Failed), len(res.Succeeded)+len(res.Failed), res.Err())
	}
	return nil
}

// RunList prints the pinned destinations, or with -live the kernel routes
// via the current gateway.
func RunList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	live := fs.Bool("live", false, "List live routes via the current gateway instead")
	fs.BoolVar(live, "l", false, "List live routes (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, os.Stderr)

	if !*live {
		st := state.NewStore(cfg.StateFile, logger.WithComponent("state")).Load()
		printPinned(os.Stdout, st)
		return nil
	}

	a, err := newApp(cfg, logger, reconciler.NopFrontend{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	gw, err := a.gateway.Gateway(ctx, cfg.Interface)
	if err != nil {
		return fmt.Errorf("failed to resolve gateway: %w", err)
	}
	if gw == "" {
		return fmt.Errorf("interface %s has no gateway", cfg.Interface)
	}
	entries, err := a.inspector.ListRoutesViaGateway(ctx, gw)
	if err != nil {
		return err
	}
	for _, line := range routing.Render(entries) {
		Printer.Fprintln(os.Stdout, line)
	}
	return nil
}

func printPinned(w io.Writer, st state.DesiredState) {
	for _, r := range st.Routes {
		Printer.Fprintln(w, r)
	}
}
