// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	engineName  = "engine"
	pingTimeout = 5 * time.Second
)

// EngineRuntime runs containers through the Docker Engine API instead of a
// CLI binary. The daemon address comes from DOCKER_HOST and related
// variables, defaulting to the local socket.
type EngineRuntime struct {
	cli *client.Client
}

// NewEngineRuntime creates an API client. It does not contact the daemon;
// call Available for that.
func NewEngineRuntime() (*EngineRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker engine client: %w", err)
	}
	return &EngineRuntime{cli: cli}, nil
}

// Close releases the API client.
func (e *EngineRuntime) Close() error {
	return e.cli.Close()
}

func (e *EngineRuntime) Name() string { return engineName }

func (e *EngineRuntime) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	_, err := e.cli.Ping(ctx)
	return err == nil
}

func (e *EngineRuntime) ImageExists(image string) error {
	if _, err := e.cli.ImageInspect(context.Background(), image); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, engineName, err)
	}
	return nil
}

// Run creates the container, waits for it to exit, then copies its
// demultiplexed logs. Stdin is not attached; the converter request travels
// in the command line.
func (e *EngineRuntime) Run(spec RunSpec, stdout, stderr io.Writer) error {
	if spec.Stdin != nil {
		return errors.New("engine runtime does not attach stdin")
	}
	ctx := context.Background()

	host := &container.HostConfig{}
	for _, m := range spec.Mounts {
		host.Mounts = append(host.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	created, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Cmd:   spec.Args,
	}, host, nil, nil, "")
	if err != nil {
		return fmt.Errorf("creating container from %s: %w", spec.Image, err)
	}
	defer e.cli.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("starting container %s: %w", created.ID, err)
	}

	var exitCode int64
	waitCh, errCh := e.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return fmt.Errorf("waiting for container %s: %w", created.ID, err)
	case res := <-waitCh:
		exitCode = res.StatusCode
	}

	logs, err := e.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return fmt.Errorf("reading logs of container %s: %w", created.ID, err)
	}
	defer logs.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return fmt.Errorf("copying output of container %s: %w", created.ID, err)
	}

	if exitCode != 0 {
		return fmt.Errorf("running %s container %s: exit status %d", engineName, spec.Image, exitCode)
	}
	return nil
}
