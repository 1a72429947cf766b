// Package cmd implements the routepin subcommands.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"grimm.is/routepin/internal/brand"
	"grimm.is/routepin/internal/config"
	"grimm.is/routepin/internal/i18n"
	"grimm.is/routepin/internal/logging"
)

// Printer is the localized printer used for all CLI output.
var Printer = i18n.NewCLIPrinter()

// Globals are the flags every command accepts.
type Globals struct {
	ConfigFile string
	Interface  string
	LogLevel   string
}

func addGlobalFlags(fs *flag.FlagSet) *Globals {
	g := &Globals{}
	def := brand.ConfigPathFromEnv()
	if def == "" {
		def = config.DefaultPath()
	}
	fs.StringVar(&g.ConfigFile, "config", def, "Configuration file")
	fs.StringVar(&g.ConfigFile, "c", def, "Configuration file (short)")
	fs.StringVar(&g.Interface, "interface", "", "Override the monitored interface")
	fs.StringVar(&g.Interface, "i", "", "Override the monitored interface (short)")
	fs.StringVar(&g.LogLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	return g
}

// loadConfig reads and validates the config file, applying flag overrides.
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.LoadFile(g.ConfigFile)
	if err != nil {
		return nil, err
	}
	if g.Interface != "" {
		cfg.Interface = g.Interface
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the process logger described by cfg.
func setupLogging(cfg *config.Config, out io.Writer) *logging.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	if out == nil {
		out = os.Stderr
	}
	logger := logging.New(logging.Config{
		Level:  level,
		Output: out,
		JSON:   cfg.LogJSON,
	})
	logging.SetDefault(logger)
	return logger
}

// RunVersion prints build information.
func RunVersion() {
	Printer.Printf("%s version %s\n", brand.Name, brand.Version)
	if brand.BuildTime != "" {
		Printer.Printf("Build: %s\n", brand.BuildTime)
	}
	if brand.GitCommit != "" {
		Printer.Printf("Commit: %s\n", brand.GitCommit)
	}
}
