package device

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configDBPath = "/etc/nos/config_db.json"
const machineConfPath = "/host/machine.conf"

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

func TestPlatformFromConfigDB(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, configDBPath, `{
		"DEVICE_METADATA": {
			"localhost": {
				"platform": "x86_64-acme_sw9032-r0",
				"hwsku": "ACME-SW9032",
				"hostname": "leaf-3"
			}
		}
	}`)

	platform, err := NewResolver(fsys, configDBPath, machineConfPath).Platform()
	require.NoError(t, err)
	assert.Equal(t, "x86_64-acme_sw9032-r0", platform)
}

func TestPlatformFallsBackToMachineConf(t *testing.T) {
	scenarios := map[string]struct {
		configDB    string
		machineConf string
		want        string
	}{
		"test missing config db uses onie platform": {
			machineConf: "onie_machine=acme_sw9032\nonie_platform=x86_64-acme_sw9032-r0\n",
			want:        "x86_64-acme_sw9032-r0",
		},
		"test malformed config db uses onie platform": {
			configDB:    "{not json",
			machineConf: "onie_platform=x86_64-acme_sw9032-r0\n",
			want:        "x86_64-acme_sw9032-r0",
		},
		"test config db without platform uses aboot platform": {
			configDB:    `{"DEVICE_METADATA": {"localhost": {"hostname": "leaf-3"}}}`,
			machineConf: "aboot_platform=x86_64-acme_sw7060\n",
			want:        "x86_64-acme_sw7060",
		},
		"test comments and blank lines are skipped": {
			machineConf: "# installer record\n\nonie_platform = x86_64-acme_sw9032-r0\n",
			want:        "x86_64-acme_sw9032-r0",
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			if data.configDB != "" {
				writeFile(t, fsys, configDBPath, data.configDB)
			}
			writeFile(t, fsys, machineConfPath, data.machineConf)

			platform, err := NewResolver(fsys, configDBPath, machineConfPath).Platform()
			require.NoError(t, err)
			assert.Equal(t, data.want, platform)
		})
	}
}

func TestPlatformUnresolvable(t *testing.T) {
	fsys := afero.NewMemMapFs()

	platform, err := NewResolver(fsys, configDBPath, machineConfPath).Platform()
	assert.Error(t, err)
	assert.Empty(t, platform)
}

func TestPlatformTool(t *testing.T) {
	const deviceDir = "/usr/share/nos/device"
	const platform = "x86_64-acme_sw9032-r0"

	scenarios := map[string]struct {
		setup    func(t *testing.T, fsys afero.Fs)
		platform string
		wantPath string
		wantOK   bool
	}{
		"test executable tool qualifies": {
			setup: func(t *testing.T, fsys afero.Fs) {
				require.NoError(t, afero.WriteFile(
					fsys,
					deviceDir+"/"+platform+"/platform_reboot",
					[]byte("#!/bin/sh\n"),
					0o755,
				))
			},
			platform: platform,
			wantPath: deviceDir + "/" + platform + "/platform_reboot",
			wantOK:   true,
		},
		"test non-executable tool does not qualify": {
			setup: func(t *testing.T, fsys afero.Fs) {
				require.NoError(t, afero.WriteFile(
					fsys,
					deviceDir+"/"+platform+"/platform_reboot",
					[]byte("#!/bin/sh\n"),
					0o644,
				))
			},
			platform: platform,
			wantOK:   false,
		},
		"test missing tool does not qualify": {
			setup:    func(t *testing.T, fsys afero.Fs) {},
			platform: platform,
			wantOK:   false,
		},
		"test empty platform does not qualify": {
			setup:    func(t *testing.T, fsys afero.Fs) {},
			platform: "",
			wantOK:   false,
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			data.setup(t, fsys)

			path, ok := PlatformTool(fsys, deviceDir, data.platform)
			assert.Equal(t, data.wantOK, ok)
			assert.Equal(t, data.wantPath, path)
		})
	}
}
