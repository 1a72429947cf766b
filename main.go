package main

import (
	"errors"
	"flag"
	"os"

	"grimm.is/routepin/cmd"
	"grimm.is/routepin/internal/brand"
	"grimm.is/routepin/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ui":
		// Interactive terminal UI with gateway monitoring
		err = cmd.RunUI(os.Args[2:])

	case "watch":
		// Headless gateway monitoring
		err = cmd.RunWatch(os.Args[2:])

	case "add":
		err = cmd.RunAdd(os.Args[2:])

	case "delete", "del", "rm":
		err = cmd.RunDelete(os.Args[2:])

	case "list", "ls":
		err = cmd.RunList(os.Args[2:])

	case "status":
		err = cmd.RunStatus(os.Args[2:])

	case "version", "--version", "-v":
		cmd.RunVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		printer.Fprintf(os.Stderr, "%s %s: %v\n", brand.BinaryName, os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage: %s <command> [options]

Commands:
  ui                 Interactive terminal UI (add, delete, live routes)
  watch              Follow gateway changes and re-anchor pinned routes
  add <hosts>        Pin hosts (';'-separated) to the current gateway
  delete <dests>     Unpin destinations
  list [-live]       List pinned destinations, or live routes via the gateway
  status [-diff]     Show gateway, anchor and drift between pinned and live routes
  version            Show version information

Common options:
  -c, -config <file>     Configuration file (default: $%s_CONFIG or the user config dir)
  -i, -interface <name>  Override the monitored interface
  -log-level <level>     debug, info, warn or error
`, brand.Name, brand.Description, brand.BinaryName, brand.ConfigEnvPrefix)
}
