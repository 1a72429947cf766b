package config

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"grimm.is/routepin/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the config and returns ValidationErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Interface) == "" {
		add("interface", "must not be empty")
	}
	if c.StateFile == "" {
		add("state_file", "must not be empty")
	}
	if d, err := time.ParseDuration(c.CommandTimeout); err != nil {
		add("command_timeout", "invalid duration %q", c.CommandTimeout)
	} else if d <= 0 {
		add("command_timeout", "must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		add("log_level", "%v", err)
	}
	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			add("metrics_listen", "expected host:port, got %q", c.MetricsListen)
		}
	}
	if c.DNSServer != "" && !validServer(c.DNSServer) {
		add("dns_server", "expected an IP address or host:port, got %q", c.DNSServer)
	}

	if m := c.Monitor; m != nil {
		switch m.Mode {
		case ModePoll, ModeLogTail, ModeNetlink:
		default:
			add("monitor.mode", "unknown mode %q (want poll, logtail or netlink)", m.Mode)
		}
		if d, err := time.ParseDuration(m.Interval); err != nil {
			add("monitor.interval", "invalid duration %q", m.Interval)
		} else if d <= 0 {
			add("monitor.interval", "must be positive")
		}
		if m.Mode == ModeLogTail && m.LogFile == "" {
			add("monitor.log_file", "required for logtail mode")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validServer(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	host, port, err := net.SplitHostPort(s)
	return err == nil && host != "" && port != ""
}
