package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var execve = unix.Exec

// Exec replaces the current process image with the given binary, forwarding
// args and the inherited environment, like the shell `exec` builtin. On
// success it never returns; an error return always means the handover failed
// and the caller is still running.
func Exec(path string, args []string) error {
	argv := append([]string{path}, args...)

	if err := execve(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}

	return nil
}
