package warmboot

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clearTime = time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

func TestClear(t *testing.T) {
	scenarios := map[string]struct {
		snapshot   bool
		kexecErr   error
		wantErr    string
		wantUnload bool
	}{
		"test snapshot is archived with a timestamp": {
			snapshot:   true,
			wantUnload: true,
		},
		"test missing snapshot is not an error": {
			snapshot:   false,
			wantUnload: true,
		},
		"test kexec unload failure is reported": {
			snapshot:   true,
			kexecErr:   errors.New("operation not permitted"),
			wantErr:    "unload kexec kernel",
			wantUnload: true,
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			clearer := NewClearer(fsys, "/host/warmboot")

			if data.snapshot {
				require.NoError(t, afero.WriteFile(
					fsys, "/host/warmboot/dump.rdb", []byte("state"), 0o644,
				))
			}

			var unloaded bool
			orig := unloadKexec
			unloadKexec = func() error {
				unloaded = true
				return data.kexecErr
			}
			t.Cleanup(func() { unloadKexec = orig })

			err := clearer.Clear(clearTime)

			if data.wantErr != "" {
				assert.ErrorContains(t, err, data.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, data.wantUnload, unloaded)

			if data.snapshot {
				archived, err := afero.Exists(
					fsys, "/host/warmboot/dump.rdb.20260825-103000",
				)
				require.NoError(t, err)
				assert.True(t, archived, "snapshot should be archived")

				pending, err := afero.Exists(fsys, "/host/warmboot/dump.rdb")
				require.NoError(t, err)
				assert.False(t, pending, "snapshot should be moved aside")
			}
		})
	}
}
