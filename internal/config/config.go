// Package config holds the tool configuration: where the device tree, the
// warm-boot state and the reboot-cause records live on this image. Defaults
// match the stock image layout; NOS builders override them through
// /etc/nos/reboot.yaml or NOSREBOOT_* environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultPath is the config file consulted when no --config flag is given.
const DefaultPath = "/etc/nos/reboot.yaml"

const envPrefix = "NOSREBOOT"

// HAL configures how the hardware-abstraction daemon is halted.
type HAL struct {
	// Container is the name of the container the daemon runs in.
	Container string `mapstructure:"container" validate:"required"`
	// ShutdownCommand is executed inside the container to request a
	// graceful shutdown.
	ShutdownCommand []string `mapstructure:"shutdown_command" validate:"required,min=1"`
}

// Config is the resolved tool configuration.
type Config struct {
	// DeviceDir is the root of the per-platform device tree.
	DeviceDir string `mapstructure:"device_dir" validate:"required"`
	// ConfigDBPath is the startup configuration database dump.
	ConfigDBPath string `mapstructure:"config_db_path" validate:"required"`
	// MachineConfPath is the boot-time machine description.
	MachineConfPath string `mapstructure:"machine_conf_path" validate:"required"`
	// WarmDir holds staged warm-boot state.
	WarmDir string `mapstructure:"warm_dir" validate:"required"`
	// CauseDir holds the reboot-cause records.
	CauseDir string `mapstructure:"cause_dir" validate:"required"`
	// HwclockPath is the hardware clock tool; missing means skip.
	HwclockPath string `mapstructure:"hwclock_path" validate:"required"`
	// RebootBin is the generic OS reboot fallback.
	RebootBin string `mapstructure:"reboot_bin" validate:"required"`
	// ServiceTarget is the service-manager unit stopped before reboot.
	ServiceTarget string `mapstructure:"service_target" validate:"required"`
	// PlatformOverride skips platform resolution when set.
	PlatformOverride string `mapstructure:"platform_override"`

	HAL HAL `mapstructure:"hal"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_dir", "/usr/share/nos/device")
	v.SetDefault("config_db_path", "/etc/nos/config_db.json")
	v.SetDefault("machine_conf_path", "/host/machine.conf")
	v.SetDefault("warm_dir", "/host/warmboot")
	v.SetDefault("cause_dir", "/host/reboot-cause")
	v.SetDefault("hwclock_path", "/sbin/hwclock")
	v.SetDefault("reboot_bin", "/sbin/reboot")
	v.SetDefault("service_target", "nos.target")
	v.SetDefault("platform_override", "")
	v.SetDefault("hal.container", "syncd")
	v.SetDefault(
		"hal.shutdown_command",
		[]string{"/usr/bin/syncd_request_shutdown", "--cold"},
	)
}

// Default returns the built-in configuration, used when no config file is
// readable. A reboot must not be blocked by a broken config.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshalling pure defaults can't fail.
	_ = v.Unmarshal(&cfg)

	return &cfg
}

// Load reads the configuration from path, falling back to DefaultPath when
// path is empty. A missing file is fine; a present-but-broken one is an
// error so the caller can decide to fall back.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigParseError); ok {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		// Missing file: defaults plus environment are good enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}
