// Package hostsvc stops host services through systemd ahead of a reboot.
package hostsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/rs/zerolog/log"
)

// stopMode makes the stop job irreversible, so nothing restarts the target
// while the box is going down.
const stopMode = "replace-irreversibly"

const defaultStopTimeout = 90 * time.Second

// Stopper stops the host services target.
type Stopper interface {
	Stop(ctx context.Context) error
	Close()
}

// systemdConn is the slice of the systemd D-Bus connection the stopper uses.
type systemdConn interface {
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// SystemdStopper stops a unit over the system D-Bus.
type SystemdStopper struct {
	conn    systemdConn
	unit    string
	timeout time.Duration
}

func NewSystemdStopper(ctx context.Context, unit string) (*SystemdStopper, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}

	return &SystemdStopper{
		conn:    conn,
		unit:    unit,
		timeout: defaultStopTimeout,
	}, nil
}

// Stop queues a stop job for the unit and waits for the job to finish.
func (s *SystemdStopper) Stop(ctx context.Context) error {
	log.Info().Str("unit", s.unit).Msg("stopping host services")

	ch := make(chan string, 1)

	if _, err := s.conn.StopUnitContext(ctx, s.unit, stopMode, ch); err != nil {
		return fmt.Errorf("stop %s: %w", s.unit, err)
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("stop %s finished with result %q", s.unit, result)
		}
	case <-time.After(s.timeout):
		return fmt.Errorf("stop %s timed out after %s", s.unit, s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (s *SystemdStopper) Close() {
	s.conn.Close()
}
