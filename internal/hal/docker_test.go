package hal

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContainerAPI struct {
	running    bool
	inspectErr error
	createErr  error
	attachErr  error
	resultErr  error
	exitCode   int
	output     string

	created *types.ExecConfig
	closed  bool
}

func (f *fakeContainerAPI) ContainerInspect(
	ctx context.Context, containerID string,
) (types.ContainerJSON, error) {
	if f.inspectErr != nil {
		return types.ContainerJSON{}, f.inspectErr
	}

	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			State: &types.ContainerState{Running: f.running},
		},
	}, nil
}

func (f *fakeContainerAPI) ContainerExecCreate(
	ctx context.Context, container string, config types.ExecConfig,
) (types.IDResponse, error) {
	if f.createErr != nil {
		return types.IDResponse{}, f.createErr
	}

	f.created = &config

	return types.IDResponse{ID: "exec-1"}, nil
}

func (f *fakeContainerAPI) ContainerExecAttach(
	ctx context.Context, execID string, config types.ExecStartCheck,
) (types.HijackedResponse, error) {
	if f.attachErr != nil {
		return types.HijackedResponse{}, f.attachErr
	}

	server, client := net.Pipe()

	go func() {
		_, _ = server.Write([]byte(f.output))
		server.Close()
	}()

	return types.HijackedResponse{
		Conn:   client,
		Reader: bufio.NewReader(client),
	}, nil
}

func (f *fakeContainerAPI) ContainerExecInspect(
	ctx context.Context, execID string,
) (types.ContainerExecInspect, error) {
	if f.resultErr != nil {
		return types.ContainerExecInspect{}, f.resultErr
	}

	return types.ContainerExecInspect{ExitCode: f.exitCode}, nil
}

func (f *fakeContainerAPI) Close() error {
	f.closed = true
	return nil
}

func TestHalt(t *testing.T) {
	scenarios := map[string]struct {
		api      *fakeContainerAPI
		wantErr  string
		wantExec bool
	}{
		"test running container is halted": {
			api:      &fakeContainerAPI{running: true, output: "shutting down\n"},
			wantExec: true,
		},
		"test stopped container has nothing to halt": {
			api: &fakeContainerAPI{running: false},
		},
		"test inspect failure is reported": {
			api:     &fakeContainerAPI{inspectErr: errors.New("no such container")},
			wantErr: "inspect syncd container",
		},
		"test exec create failure is reported": {
			api:     &fakeContainerAPI{running: true, createErr: errors.New("daemon gone")},
			wantErr: "create exec in syncd container",
		},
		"test exec attach failure is reported": {
			api:     &fakeContainerAPI{running: true, attachErr: errors.New("daemon gone")},
			wantErr: "attach exec in syncd container",
		},
		"test nonzero exit status is reported": {
			api:      &fakeContainerAPI{running: true, exitCode: 3},
			wantErr:  "exited with status 3",
			wantExec: true,
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			halter := &DockerHalter{
				api:       data.api,
				container: "syncd",
				command:   []string{"/usr/bin/syncd_request_shutdown", "--cold"},
			}

			err := halter.Halt(context.Background())

			if data.wantErr != "" {
				assert.ErrorContains(t, err, data.wantErr)
			} else {
				assert.NoError(t, err)
			}

			if data.wantExec {
				require.NotNil(t, data.api.created)
				assert.Equal(
					t,
					[]string{"/usr/bin/syncd_request_shutdown", "--cold"},
					data.api.created.Cmd,
				)
				assert.True(t, data.api.created.AttachStdout)
				assert.True(t, data.api.created.AttachStderr)
			} else {
				assert.Nil(t, data.api.created)
			}
		})
	}
}

func TestHalt_NoCommand(t *testing.T) {
	api := &fakeContainerAPI{running: true}
	halter := &DockerHalter{api: api, container: "syncd"}

	err := halter.Halt(context.Background())

	assert.ErrorContains(t, err, "no shutdown command configured")
	assert.Nil(t, api.created)
}

func TestClose(t *testing.T) {
	api := &fakeContainerAPI{}
	halter := &DockerHalter{api: api}

	require.NoError(t, halter.Close())
	assert.True(t, api.closed)
}
