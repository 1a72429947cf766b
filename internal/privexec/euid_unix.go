//go:build unix

package privexec

import "golang.org/x/sys/unix"

// runningAsRoot reports whether elevation can be skipped.
func runningAsRoot() bool {
	return unix.Geteuid() == 0
}
