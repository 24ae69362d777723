// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/litecompat/internal/container"
	"github.com/pdiddy/litecompat/pkg/types"
)

// DefaultImage is the last TensorFlow image whose converter emits
// FULLY_CONNECTED v11.
const DefaultImage = "tensorflow/tensorflow:" + LastV11Release

// inputMount is where the input's parent directory appears in the container.
const inputMount = "/work/input"

// ContainerConverter runs the helper inside a TensorFlow image. It depends on
// a container.Runtime (docker, podman or the engine API) injected at
// construction time.
type ContainerConverter struct {
	runtime container.Runtime
	image   string
	log     io.Writer
}

// NewContainerConverter verifies that image exists locally before returning.
func NewContainerConverter(rt container.Runtime, image string, log io.Writer) (*ContainerConverter, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%w: converter image not available in %s (pull it with `%s pull %s`): %v",
			types.ErrNoRuntime, rt.Name(), rt.Name(), image, err)
	}
	return &ContainerConverter{runtime: rt, image: image, log: log}, nil
}

func (c *ContainerConverter) Name() string {
	return string(types.BackendContainer) + ":" + c.runtime.Name()
}

func (c *ContainerConverter) runner(mounts []container.Mount) runFunc {
	return func(arg string, stdout, stderr io.Writer) error {
		return c.runtime.Run(container.RunSpec{
			Image:  c.image,
			Args:   []string{"python3", "-c", helperScript, arg},
			Mounts: mounts,
		}, stdout, stderr)
	}
}

func (c *ContainerConverter) Version() (string, error) {
	out, err := callHelper(c.runner(nil), request{Action: "version"}, nil)
	if err != nil {
		return "", fmt.Errorf("querying TensorFlow version in %s: %w", c.image, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Convert bind-mounts the input's parent directory read-only and points the
// helper at the mounted copy.
func (c *ContainerConverter) Convert(src types.ModelSource, flags types.ConverterFlags) ([]byte, error) {
	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", types.ErrConversion, src.Path, err)
	}
	mounts := []container.Mount{{Source: filepath.Dir(abs), Target: inputMount, ReadOnly: true}}

	req := request{
		Action: "convert",
		Format: src.Format,
		Input:  path.Join(inputMount, filepath.Base(abs)),
		Flags:  &flags,
	}
	data, err := callHelper(c.runner(mounts), req, c.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrConversion, src.Path, err)
	}
	return data, nil
}

// NewConverter builds the backend selected by cfg.
func NewConverter(cfg types.ConverterConfig, log io.Writer) (Converter, error) {
	switch cfg.Backend {
	case types.BackendPython, "":
		return NewPythonConverter(cfg.PythonBin, log)
	case types.BackendContainer:
		rt, err := container.DetectRuntime(cfg.Runtime)
		if err != nil {
			return nil, err
		}
		return NewContainerConverter(rt, cfg.Image, log)
	default:
		return nil, fmt.Errorf("unknown converter backend %q (want python or container)", cfg.Backend)
	}
}
