package platform

import (
	"fmt"

	"github.com/syndtr/gocapability/capability"
)

// HasBootCapability reports whether the process holds CAP_SYS_BOOT in its
// effective set. Root inside an unprivileged container passes the euid check
// but still can't reboot the host; this catches that case up front instead of
// after services have been torn down.
func HasBootCapability() (bool, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return false, fmt.Errorf("initialise capability set: %w", err)
	}

	if err := caps.Load(); err != nil {
		return false, fmt.Errorf("load capability set: %w", err)
	}

	return caps.Get(capability.EFFECTIVE, capability.CAP_SYS_BOOT), nil
}
