package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// AtomicWriteFile writes data to a file atomically by operating on a temp file
// then renaming it. A reboot can land at any point, so records must never be
// observable half-written.
func AtomicWriteFile(fsys afero.Fs, filename string, data []byte, perm os.FileMode) error {
	f, err := afero.TempFile(fsys, filepath.Dir(filename), ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempFileName := f.Name()

	defer fsys.Remove(tempFileName)
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write data to temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("flush temp file data: %w", err)
	}

	if err := fsys.Chmod(tempFileName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := fsys.Rename(tempFileName, filename); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
