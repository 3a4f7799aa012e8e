// Package hal shuts down the hardware abstraction layer ahead of a reboot,
// giving the ASIC a chance to quiesce before the kernel goes away.
package hal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog/log"
)

// Halter stops the hardware abstraction layer.
type Halter interface {
	Halt(ctx context.Context) error
	Close() error
}

// containerAPI is the slice of the Docker client the halter uses.
type containerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	Close() error
}

// DockerHalter runs the shutdown command inside the HAL container.
type DockerHalter struct {
	api       containerAPI
	container string
	command   []string
}

// NewDockerHalter connects to the local Docker daemon using the standard
// environment configuration.
func NewDockerHalter(container string, command []string) (*DockerHalter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("connect to docker daemon: %w", err)
	}

	cli.NegotiateAPIVersion(context.Background())

	return &DockerHalter{
		api:       cli,
		container: container,
		command:   command,
	}, nil
}

// Halt execs the shutdown command in the HAL container and waits for it to
// finish. A container that isn't running has nothing to halt.
func (h *DockerHalter) Halt(ctx context.Context) error {
	if len(h.command) == 0 {
		return errors.New("no shutdown command configured")
	}

	info, err := h.api.ContainerInspect(ctx, h.container)
	if err != nil {
		return fmt.Errorf("inspect %s container: %w", h.container, err)
	}

	if info.State == nil || !info.State.Running {
		log.Warn().
			Str("container", h.container).
			Msg("container not running, nothing to halt")

		return nil
	}

	exec, err := h.api.ContainerExecCreate(ctx, h.container, types.ExecConfig{
		Cmd:          h.command,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("create exec in %s container: %w", h.container, err)
	}

	resp, err := h.api.ContainerExecAttach(ctx, exec.ID, types.ExecStartCheck{})
	if err != nil {
		return fmt.Errorf("attach exec in %s container: %w", h.container, err)
	}
	defer resp.Close()

	// The output is uninteresting; drain it so the exec can finish.
	if _, err := io.Copy(io.Discard, resp.Reader); err != nil {
		return fmt.Errorf("drain exec output: %w", err)
	}

	state, err := h.api.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return fmt.Errorf("inspect exec result: %w", err)
	}

	if state.ExitCode != 0 {
		return fmt.Errorf("%s exited with status %d", h.command[0], state.ExitCode)
	}

	return nil
}

func (h *DockerHalter) Close() error {
	return h.api.Close()
}
