//go:build !unix

package privexec

func runningAsRoot() bool { return false }
