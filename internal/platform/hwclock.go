package platform

import (
	"fmt"
	"os"
	"os/exec"
)

var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// SaveHardwareClock writes the current system time back to the hardware
// clock so the device doesn't come up with a stale RTC. A no-op when the
// hwclock binary isn't installed.
func SaveHardwareClock(hwclockPath string) error {
	if !isExecutable(hwclockPath) {
		return nil
	}

	if err := runCommand(hwclockPath, "-w"); err != nil {
		return fmt.Errorf("hwclock -w: %w", err)
	}

	return nil
}

// isExecutable reports whether path is a regular file with any executable
// bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
