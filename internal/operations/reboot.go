// internal/operations/reboot.go

package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nixpig/nosreboot/internal/config"
	"github.com/nixpig/nosreboot/internal/device"
	"github.com/nixpig/nosreboot/internal/hal"
	"github.com/nixpig/nosreboot/internal/hostsvc"
	"github.com/nixpig/nosreboot/internal/platform"
	"github.com/nixpig/nosreboot/internal/rebootcause"
	"github.com/nixpig/nosreboot/internal/warmboot"
)

// ErrNotPermitted is returned when the caller isn't root.
var ErrNotPermitted = errors.New("this command must be run as root")

// settleDelay gives the ASIC and the disks time to finish what the previous
// step started.
const settleDelay = 3 * time.Second

var (
	hostFS            = afero.NewOsFs()
	isRoot            = platform.IsRoot
	hasBootCapability = platform.HasBootCapability
	syncFilesystems   = platform.SyncFilesystems
	saveHardwareClock = platform.SaveHardwareClock
	execReboot        = platform.Exec
	sleep             = time.Sleep
	timeNow           = time.Now
	invokingUser      = rebootcause.InvokingUser

	newHalter = func(container string, command []string) (hal.Halter, error) {
		return hal.NewDockerHalter(container, command)
	}
	newStopper = func(ctx context.Context, unit string) (hostsvc.Stopper, error) {
		return hostsvc.NewSystemdStopper(ctx, unit)
	}
)

// RebootOpts holds the options for the Reboot operation.
type RebootOpts struct {
	// Config is the resolved tool configuration.
	Config *config.Config
	// Args are the original CLI arguments, forwarded to the reboot tool.
	Args []string
	// Force skips the reboot capability probe.
	Force bool
}

// Reboot drives the host through an orderly cold reboot: halt the hardware
// abstraction layer, stop host services, clear warm-boot state, record the
// cause, flush, then hand the process over to the reboot tool. Only the
// privilege gate aborts; everything else is best-effort. On success it does
// not return.
func Reboot(opts *RebootOpts) error {
	if !isRoot() {
		return ErrNotPermitted
	}

	if !opts.Force {
		if ok, err := hasBootCapability(); err != nil {
			log.Warn().Err(err).Msg("unable to probe reboot capability")
		} else if !ok {
			log.Warn().Msg("CAP_SYS_BOOT is not in the effective set, reboot will likely fail")
		}
	}

	ctx := context.Background()
	cfg := opts.Config
	now := timeNow()

	platformID := resolvePlatform(cfg)

	log.Info().
		Str("platform", platformID).
		Str("user", invokingUser()).
		Msg("rebooting")

	var degraded *multierror.Error

	if err := haltHAL(ctx, cfg); err != nil {
		degraded = multierror.Append(
			degraded, fmt.Errorf("halt hardware abstraction layer: %w", err),
		)
	}

	// The ASIC needs a moment to finish whatever the shutdown started.
	sleep(settleDelay)

	if err := stopHostServices(ctx, cfg); err != nil {
		degraded = multierror.Append(
			degraded, fmt.Errorf("stop host services: %w", err),
		)
	}

	if err := warmboot.NewClearer(hostFS, cfg.WarmDir).Clear(now); err != nil {
		degraded = multierror.Append(
			degraded, fmt.Errorf("clear warm-boot state: %w", err),
		)
	}

	if err := rebootcause.NewStore(hostFS, cfg.CauseDir).SignOff(invokingUser(), now); err != nil {
		degraded = multierror.Append(
			degraded, fmt.Errorf("record reboot cause: %w", err),
		)
	}

	syncFilesystems()
	sleep(settleDelay)

	if err := saveHardwareClock(cfg.HwclockPath); err != nil {
		degraded = multierror.Append(
			degraded, fmt.Errorf("save hardware clock: %w", err),
		)
	}

	if err := degraded.ErrorOrNil(); err != nil {
		log.Warn().Err(err).Msg("continuing reboot in degraded state")
	}

	if tool, ok := device.PlatformTool(hostFS, cfg.DeviceDir, platformID); ok {
		log.Info().Str("tool", tool).Msg("handing over to platform reboot tool")

		if err := execReboot(tool, opts.Args); err != nil {
			log.Warn().
				Err(err).
				Str("tool", tool).
				Msg("platform reboot tool failed, falling back")
		}
	}

	log.Info().Str("tool", cfg.RebootBin).Msg("handing over to reboot")

	if err := execReboot(cfg.RebootBin, opts.Args); err != nil {
		return fmt.Errorf("reboot failed: %w", err)
	}

	return nil
}

// resolvePlatform returns the configured override, else asks the device
// layer. An unresolvable platform is not fatal: dispatch goes generic.
func resolvePlatform(cfg *config.Config) string {
	if cfg.PlatformOverride != "" {
		return cfg.PlatformOverride
	}

	resolver := device.NewResolver(hostFS, cfg.ConfigDBPath, cfg.MachineConfPath)

	platformID, err := resolver.Platform()
	if err != nil {
		log.Warn().Err(err).Msg("unable to resolve device platform, using generic reboot")
		return ""
	}

	return platformID
}

func haltHAL(ctx context.Context, cfg *config.Config) error {
	halter, err := newHalter(cfg.HAL.Container, cfg.HAL.ShutdownCommand)
	if err != nil {
		return err
	}
	defer halter.Close()

	return halter.Halt(ctx)
}

func stopHostServices(ctx context.Context, cfg *config.Config) error {
	stopper, err := newStopper(ctx, cfg.ServiceTarget)
	if err != nil {
		return err
	}
	defer stopper.Close()

	return stopper.Stop(ctx)
}
