// Package config loads routepin settings.
//
// Settings are read from an HCL file by default. Files ending in .json,
// .yaml or .yml are decoded as JSON or YAML with the same field names. HCL
// expressions may reference two variables:
//
//   - home: the current user's home directory
//   - env: an object of the process environment, e.g. env.SUDO_USER
//
// A missing file is not an error; defaults are used instead.
//
// Example:
//
//	interface       = "en0"
//	state_file      = "${home}/routes.json"
//	command_timeout = "30s"
//
//	monitor {
//	  mode     = "logtail"
//	  log_file = "/var/log/wifi.log"
//	  keyword  = "Gateway"
//	}
package config
