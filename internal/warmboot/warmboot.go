// Package warmboot clears warm-boot state ahead of a cold reboot, so the
// device can't come back up believing a warm restart is in progress.
package warmboot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nixpig/nosreboot/internal/platform"
)

// SnapshotFileName is the state snapshot a warm restart would reload.
const SnapshotFileName = "dump.rdb"

const archiveTimeFormat = "20060102-150405"

var unloadKexec = platform.UnloadKexec

// Clearer removes warm-boot leftovers from a single warm-boot directory.
type Clearer struct {
	fs  afero.Fs
	dir string
}

func NewClearer(fsys afero.Fs, dir string) *Clearer {
	return &Clearer{fs: fsys, dir: dir}
}

// Clear archives any pending state snapshot and unloads a staged kexec
// kernel. Both steps are always attempted; their errors are aggregated.
func (c *Clearer) Clear(now time.Time) error {
	var result *multierror.Error

	if err := c.archiveSnapshot(now); err != nil {
		result = multierror.Append(
			result, fmt.Errorf("archive warm-boot snapshot: %w", err),
		)
	}

	if err := unloadKexec(); err != nil {
		result = multierror.Append(
			result, fmt.Errorf("unload kexec kernel: %w", err),
		)
	}

	return result.ErrorOrNil()
}

// archiveSnapshot renames the snapshot out of the way rather than deleting
// it, keeping a timestamped copy around for postmortems.
func (c *Clearer) archiveSnapshot(now time.Time) error {
	src := filepath.Join(c.dir, SnapshotFileName)

	if _, err := c.fs.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	dst := fmt.Sprintf("%s.%s", src, now.Format(archiveTimeFormat))

	log.Debug().
		Str("snapshot", src).
		Str("archive", dst).
		Msg("archiving warm-boot snapshot")

	return c.fs.Rename(src, dst)
}
