package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"grimm.is/routepin/internal/config"
	"grimm.is/routepin/internal/i18n"
	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/monitor"
	"grimm.is/routepin/internal/reconciler"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, "routepin.hcl", `
interface  = "en0"
state_file = "/tmp/routes.json"
log_level  = "warn"
`)

	cfg, err := loadConfig(&Globals{ConfigFile: path, Interface: "en5", LogLevel: "debug"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Interface != "en5" {
		t.Errorf("Interface = %q, want en5", cfg.Interface)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.StateFile != "/tmp/routes.json" {
		t.Errorf("StateFile = %q", cfg.StateFile)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(&Globals{ConfigFile: filepath.Join(t.TempDir(), "nope.hcl")})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Interface != config.DefaultInterface() {
		t.Errorf("Interface = %q, want %q", cfg.Interface, config.DefaultInterface())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "bad.hcl", `command_timeout = "soon"`)
	if _, err := loadConfig(&Globals{ConfigFile: path}); err == nil {
		t.Error("loadConfig() error = nil, want validation error")
	}

	path = writeConfig(t, "broken.hcl", `interface = `)
	if _, err := loadConfig(&Globals{ConfigFile: path}); err == nil {
		t.Error("loadConfig() error = nil, want parse error")
	}
}

func TestSources(t *testing.T) {
	logger := logging.WithComponent("test")

	cfg := config.Default()
	cfg.Monitor.Interval = "2s"
	srcs, err := sources(cfg, logger)
	if err != nil {
		t.Fatalf("sources() error = %v", err)
	}
	if len(srcs) != 1 {
		t.Fatalf("got %d sources, want 1", len(srcs))
	}
	poll, ok := srcs[0].(monitor.PollSource)
	if !ok || poll.Interval != 2*time.Second {
		t.Errorf("poll source = %#v", srcs[0])
	}

	cfg.Monitor.Mode = config.ModeLogTail
	cfg.Monitor.LogFile = "/var/log/test.log"
	srcs, _ = sources(cfg, logger)
	tail, ok := srcs[0].(monitor.LogTailSource)
	if !ok || tail.Path != "/var/log/test.log" || tail.Keyword != "Gateway" {
		t.Errorf("logtail source = %#v", srcs[0])
	}

	cfg.Monitor.Mode = config.ModeNetlink
	cfg.Namespace = "blue"
	srcs, _ = sources(cfg, logger)
	nl, ok := srcs[0].(monitor.NetlinkSource)
	if !ok || nl.Namespace != "blue" {
		t.Errorf("netlink source = %#v", srcs[0])
	}

	cfg.Monitor.Mode = "carrier-pigeon"
	if _, err := sources(cfg, logger); err == nil {
		t.Error("sources() error = nil for unknown mode")
	}
}

func TestResultError(t *testing.T) {
	ok := reconciler.Result{Op: reconciler.AddOp("a"), Succeeded: []string{"1.2.3.4/32"}}
	if err := resultError(ok); err != nil {
		t.Errorf("committed result error = %v", err)
	}

	noop := reconciler.Result{Op: reconciler.RefreshOp()}
	if err := resultError(noop); err != nil {
		t.Errorf("noop result error = %v", err)
	}

	boom := errors.New("boom")
	partial := reconciler.Result{
		Op:        reconciler.AddOp("a;b"),
		Succeeded: []string{"1.2.3.4/32"},
		Failed:    []string{"b"},
		Errors:    []error{boom},
	}
	err := resultError(partial)
	if err == nil || !errors.Is(err, boom) || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("partial result error = %v", err)
	}

	failed := reconciler.Result{Op: reconciler.AddOp("a"), Failed: []string{"a"}, Errors: []error{boom}}
	if err := resultError(failed); err == nil || !errors.Is(err, boom) {
		t.Errorf("failed result error = %v", err)
	}
}

func TestPrintPinned(t *testing.T) {
	st := state.Empty()
	st.AddRoute("1.2.3.4/32")
	st.AddRoute("10.8.0.0/16")

	var buf bytes.Buffer
	printPinned(&buf, st)
	if got, want := buf.String(), "1.2.3.4/32\n10.8.0.0/16\n"; got != want {
		t.Errorf("printPinned() = %q, want %q", got, want)
	}
}

func TestPrintStatus(t *testing.T) {
	p := i18n.NewPrinter(language.English)

	st := state.Empty()
	st.SetGateway("10.0.0.1")
	st.AddRoute("1.2.3.4/32")
	st.AddRoute("5.6.7.8/32")

	live := []routing.LiveRouteEntry{{Destination: "1.2.3.4", Gateway: "10.0.0.1"}}
	drift, err := routing.DriftReport(st.Routes, live)
	if err != nil {
		t.Fatalf("DriftReport() error = %v", err)
	}

	var buf bytes.Buffer
	printStatus(&buf, p, statusReport{
		Interface: "en0",
		Gateway:   "10.0.0.1",
		StateFile: "/tmp/routes.json",
		State:     st,
		Live:      live,
		ShowDrift: true,
		Drift:     drift,
		Recent: []state.Record{{
			Kind: "add", Outcome: "committed", Succeeded: 2, Input: "1.2.3.4;5.6.7.8",
			FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
	})
	out := buf.String()

	for _, want := range []string{
		"Current gateway: 10.0.0.1 (en0)",
		"Anchored to: 10.0.0.1",
		"State file: /tmp/routes.json",
		"2 pinned route(s)",
		"1 live route(s) via gateway",
		"-5.6.7.8",
		"Recent operations:",
		"2026-01-02 03:04:05",
		"1.2.3.4;5.6.7.8",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStatus_NoGateway(t *testing.T) {
	p := i18n.NewPrinter(language.English)

	var buf bytes.Buffer
	printStatus(&buf, p, statusReport{Interface: "en0", State: state.Empty(), ShowDrift: true})
	out := buf.String()

	for _, want := range []string{
		"Current gateway: None (en0)",
		"Anchored to: never anchored",
		"0 pinned route(s)",
		"No drift between pinned and live routes.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "live route(s)") {
		t.Errorf("live count printed without a gateway:\n%s", out)
	}
}
