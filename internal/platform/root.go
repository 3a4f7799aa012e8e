package platform

import "golang.org/x/sys/unix"

var geteuid = unix.Geteuid

// IsRoot reports whether the process runs with effective UID 0. Everything
// this tool does (stopping services, kexec, the reboot itself) needs root, so
// callers gate on this before touching the system.
func IsRoot() bool {
	return geteuid() == 0
}
