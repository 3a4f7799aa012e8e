// Package device resolves the hardware platform identity of the switch and
// locates the platform vendor's reboot tooling.
package device

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	deviceMetadataTable = "DEVICE_METADATA"
	localhostEntry      = "localhost"

	// platform keys written into machine.conf by the ONIE and Aboot
	// installers respectively.
	oniePlatformKey  = "onie_platform"
	abootPlatformKey = "aboot_platform"

	// PlatformToolName is the vendor reboot tool looked up under
	// <device dir>/<platform>/.
	PlatformToolName = "platform_reboot"
)

// Metadata is the localhost entry of the DEVICE_METADATA table in the
// startup configuration database.
type Metadata struct {
	Platform string `mapstructure:"platform"`
	HwSKU    string `mapstructure:"hwsku"`
	Hostname string `mapstructure:"hostname"`
	Mac      string `mapstructure:"mac"`
}

// Resolver determines the platform identifier from the image's
// configuration sources.
type Resolver struct {
	fs              afero.Fs
	configDBPath    string
	machineConfPath string
}

func NewResolver(fsys afero.Fs, configDBPath, machineConfPath string) *Resolver {
	return &Resolver{
		fs:              fsys,
		configDBPath:    configDBPath,
		machineConfPath: machineConfPath,
	}
}

// Platform returns the device platform identifier, preferring the startup
// configuration database and falling back to the machine description laid
// down by the installer. An empty identifier with an error means neither
// source resolved.
func (r *Resolver) Platform() (string, error) {
	platform, dbErr := r.fromConfigDB()
	if dbErr == nil && platform != "" {
		return platform, nil
	}

	if dbErr != nil {
		log.Debug().Err(dbErr).Msg("platform not in config db")
	}

	platform, confErr := r.fromMachineConf()
	if confErr == nil && platform != "" {
		return platform, nil
	}

	return "", errors.Join(dbErr, confErr)
}

// fromConfigDB reads DEVICE_METADATA.localhost.platform from the startup
// configuration database dump.
func (r *Resolver) fromConfigDB() (string, error) {
	b, err := afero.ReadFile(r.fs, r.configDBPath)
	if err != nil {
		return "", fmt.Errorf("read config db: %w", err)
	}

	var db map[string]map[string]map[string]any
	if err := json.Unmarshal(b, &db); err != nil {
		return "", fmt.Errorf("parse config db: %w", err)
	}

	raw, ok := db[deviceMetadataTable][localhostEntry]
	if !ok {
		return "", fmt.Errorf(
			"no %s.%s entry in config db",
			deviceMetadataTable, localhostEntry,
		)
	}

	var meta Metadata
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return "", fmt.Errorf("decode device metadata: %w", err)
	}

	return meta.Platform, nil
}

// fromMachineConf scans the installer's key=value machine description for a
// platform entry.
func (r *Resolver) fromMachineConf() (string, error) {
	f, err := r.fs.Open(r.machineConfPath)
	if err != nil {
		return "", fmt.Errorf("open machine conf: %w", err)
	}
	defer f.Close()

	entries := map[string]string{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		entries[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan machine conf: %w", err)
	}

	if p := entries[oniePlatformKey]; p != "" {
		return p, nil
	}

	if p := entries[abootPlatformKey]; p != "" {
		return p, nil
	}

	return "", errors.New("no platform entry in machine conf")
}

// PlatformTool returns the path of the platform-specific reboot tool and
// whether it qualifies: it must exist under the device tree for the given
// platform and carry an executable bit.
func PlatformTool(fsys afero.Fs, deviceDir, platform string) (string, bool) {
	if platform == "" {
		return "", false
	}

	path := filepath.Join(deviceDir, platform, PlatformToolName)

	info, err := fsys.Stat(path)
	if err != nil {
		return "", false
	}

	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return "", false
	}

	return path, true
}
