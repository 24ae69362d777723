// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container implements container runtime detection and execution
// for running the TensorFlow converter inside an image.
package container

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/pdiddy/litecompat/pkg/types"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Mount is a host path made visible inside the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunSpec describes one container invocation.
type RunSpec struct {
	Image  string
	Args   []string
	Mounts []Mount
	Stdin  io.Reader
}

// Runtime provides container operations: checking availability, verifying
// images, and running containers.
type Runtime interface {
	// Name returns the runtime name ("docker", "podman" or "engine").
	Name() string

	// Available reports whether the runtime is usable right now.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Run executes a container, copying its stdout and stderr to the given
	// writers. A non-zero exit status is an error.
	Run(spec RunSpec, stdout, stderr io.Writer) error
}

// Executor abstracts command execution for testing. The python converter
// backend shares it.
type Executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunPiped(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

// OSExecutor is the production executor backed by os/exec.
type OSExecutor struct{}

func (OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OSExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (OSExecutor) RunPiped(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// cliRuntime implements Runtime by shelling out to a container binary. Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type cliRuntime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          Executor
}

func (r *cliRuntime) Name() string { return r.bin }

func (r *cliRuntime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *cliRuntime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *cliRuntime) Run(spec RunSpec, stdout, stderr io.Writer) error {
	if err := r.exec.RunPiped(r.bin, runArgs(spec), spec.Stdin, stdout, stderr); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
	}
	return nil
}

// runArgs builds the `run` command line shared by docker and podman.
func runArgs(spec RunSpec) []string {
	args := []string{"run", "--rm", "-i"}
	for _, m := range spec.Mounts {
		v := "type=bind," + mountField("source", m.Source) + "," + mountField("target", m.Target)
		if m.ReadOnly {
			v += ",readonly"
		}
		args = append(args, "--mount", v)
	}
	args = append(args, spec.Image)
	return append(args, spec.Args...)
}

// mountField renders key=value for --mount. The value is parsed as CSV, so a
// field holding a comma or quote is quoted. Colons need no escaping.
func mountField(key, value string) string {
	f := key + "=" + value
	if strings.ContainsAny(f, ",\"") {
		return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return f
}

func newDockerRuntime(exec Executor) *cliRuntime {
	return &cliRuntime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec Executor) *cliRuntime {
	return &cliRuntime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

// DetectRuntime returns the runtime selected by kind. RuntimeAuto (or an
// empty kind) tries docker first and falls back to podman; RuntimeEngine
// connects to the Docker Engine API.
func DetectRuntime(kind types.ContainerRuntimeKind) (Runtime, error) {
	if kind == types.RuntimeEngine {
		rt, err := NewEngineRuntime()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrNoRuntime, err)
		}
		if !rt.Available() {
			rt.Close()
			return nil, fmt.Errorf("%w: docker engine is not responding", types.ErrNoRuntime)
		}
		return rt, nil
	}
	return detectRuntime(OSExecutor{}, kind)
}

func detectRuntime(exec Executor, kind types.ContainerRuntimeKind) (Runtime, error) {
	var candidates []*cliRuntime
	switch kind {
	case types.RuntimeDocker:
		candidates = []*cliRuntime{newDockerRuntime(exec)}
	case types.RuntimePodman:
		candidates = []*cliRuntime{newPodmanRuntime(exec)}
	case types.RuntimeAuto, "":
		candidates = []*cliRuntime{newDockerRuntime(exec), newPodmanRuntime(exec)}
	default:
		return nil, fmt.Errorf("unknown container runtime %q (want auto, docker, podman, or engine)", kind)
	}

	for _, rt := range candidates {
		if rt.Available() {
			return rt, nil
		}
	}

	names := make([]string, len(candidates))
	for i, rt := range candidates {
		names[i] = rt.bin
	}
	return nil, fmt.Errorf("%w: none of %v found or operational", types.ErrNoRuntime, names)
}
