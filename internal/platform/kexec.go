package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// x/sys wraps kexec_file_load(2) but not kexec_load(2), so raw syscall.
// Arguments are entry, nr_segments, segments, flags.
var kexecLoad = func(entry, nsegments, segments, flags uintptr) error {
	if _, _, errno := unix.Syscall6(
		unix.SYS_KEXEC_LOAD, entry, nsegments, segments, flags, 0, 0,
	); errno != 0 {
		return errno
	}

	return nil
}

// UnloadKexec discards any kernel staged for exec-on-reboot, so a plain
// reboot goes through the firmware instead of the staged image. This is the
// syscall equivalent of `kexec -u`: a kexec_load(2) with zero segments.
// Succeeds when nothing was staged.
func UnloadKexec() error {
	if err := kexecLoad(0, 0, 0, unix.KEXEC_ARCH_DEFAULT); err != nil {
		return fmt.Errorf("kexec unload: %w", err)
	}

	return nil
}
