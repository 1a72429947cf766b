package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Monitor modes.
const (
	ModePoll    = "poll"
	ModeLogTail = "logtail"
	ModeNetlink = "netlink"
)

// Config is the top-level configuration.
type Config struct {
	Interface      string `hcl:"interface,optional" json:"interface,omitempty" yaml:"interface,omitempty"`
	StateFile      string `hcl:"state_file,optional" json:"state_file,omitempty" yaml:"state_file,omitempty"`
	JournalFile    string `hcl:"journal_file,optional" json:"journal_file,omitempty" yaml:"journal_file,omitempty"`
	CommandTimeout string `hcl:"command_timeout,optional" json:"command_timeout,omitempty" yaml:"command_timeout,omitempty"`
	SudoPath       string `hcl:"sudo_path,optional" json:"sudo_path,omitempty" yaml:"sudo_path,omitempty"`
	LogLevel       string `hcl:"log_level,optional" json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogJSON        bool   `hcl:"log_json,optional" json:"log_json,omitempty" yaml:"log_json,omitempty"`
	MetricsListen  string `hcl:"metrics_listen,optional" json:"metrics_listen,omitempty" yaml:"metrics_listen,omitempty"`
	Namespace      string `hcl:"namespace,optional" json:"namespace,omitempty" yaml:"namespace,omitempty"` // linux netns
	DNSServer      string `hcl:"dns_server,optional" json:"dns_server,omitempty" yaml:"dns_server,omitempty"`

	Monitor *MonitorConfig `hcl:"monitor,block" json:"monitor,omitempty" yaml:"monitor,omitempty"`
}

// MonitorConfig selects how gateway changes are detected.
type MonitorConfig struct {
	Mode     string `hcl:"mode,optional" json:"mode,omitempty" yaml:"mode,omitempty"`
	Interval string `hcl:"interval,optional" json:"interval,omitempty" yaml:"interval,omitempty"`
	LogFile  string `hcl:"log_file,optional" json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Keyword  string `hcl:"keyword,optional" json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Probe    bool   `hcl:"probe,optional" json:"probe,omitempty" yaml:"probe,omitempty"`
}

// DefaultInterface is the interface watched when none is configured.
func DefaultInterface() string {
	if runtime.GOOS == "darwin" {
		return "en0"
	}
	return "eth0"
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Interface == "" {
		c.Interface = DefaultInterface()
	}
	if c.StateFile == "" {
		c.StateFile = "~/routes.json"
	}
	if c.CommandTimeout == "" {
		c.CommandTimeout = "30s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Monitor == nil {
		c.Monitor = &MonitorConfig{}
	}
	if c.Monitor.Mode == "" {
		c.Monitor.Mode = ModePoll
	}
	if c.Monitor.Interval == "" {
		c.Monitor.Interval = "5s"
	}
	if c.Monitor.LogFile == "" {
		c.Monitor.LogFile = "/var/log/wifi.log"
	}
	if c.Monitor.Keyword == "" {
		c.Monitor.Keyword = "Gateway"
	}

	c.StateFile = expandHome(c.StateFile)
	c.JournalFile = expandHome(c.JournalFile)
	c.Monitor.LogFile = expandHome(c.Monitor.LogFile)
}

// Timeout returns the per-command ceiling.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// PollInterval returns the monitor poll interval.
func (c *Config) PollInterval() time.Duration {
	if c.Monitor == nil {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.Monitor.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultPath is where the config file is looked up when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "routepin.hcl"
	}
	return filepath.Join(dir, "routepin", "routepin.hcl")
}
