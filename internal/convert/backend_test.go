// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litecompat/internal/container"
	"github.com/pdiddy/litecompat/pkg/types"
)

// scriptedExecutor plays the part of the python interpreter.
type scriptedExecutor struct {
	bins   map[string]bool
	name   string
	args   []string
	stdout string
	stderr string
	err    error
}

func (s *scriptedExecutor) LookPath(file string) (string, error) {
	if s.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (s *scriptedExecutor) RunSilent(string, ...string) error { return nil }

func (s *scriptedExecutor) RunPiped(name string, args []string, _ io.Reader, stdout, stderr io.Writer) error {
	s.name, s.args = name, args
	_, _ = io.WriteString(stdout, s.stdout)
	_, _ = io.WriteString(stderr, s.stderr)
	return s.err
}

func decodeRequest(t *testing.T, arg string) request {
	t.Helper()
	var req request
	require.NoError(t, json.Unmarshal([]byte(arg), &req))
	return req
}

func TestPythonConverter_MissingInterpreter(t *testing.T) {
	_, err := newPythonConverter(&scriptedExecutor{}, "python3.11", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoRuntime)
	assert.Contains(t, err.Error(), "python3.11")
}

func TestPythonConverter_Convert(t *testing.T) {
	exec := &scriptedExecutor{
		bins:   map[string]bool{"python3": true},
		stdout: "TFL3-bytes",
		stderr: "Loading Keras model...\n",
	}
	var log strings.Builder
	p, err := newPythonConverter(exec, "", &log)
	require.NoError(t, err)
	assert.Equal(t, "python", p.Name())

	data, err := p.Convert(types.ModelSource{Path: "models/a.h5", Format: types.FormatKeras}, ExportFlags())
	require.NoError(t, err)
	assert.Equal(t, "TFL3-bytes", string(data))
	assert.Equal(t, "Loading Keras model...\n", log.String(), "stderr is streamed to the log writer")

	assert.Equal(t, "python3", exec.name)
	require.Len(t, exec.args, 3)
	assert.Equal(t, "-c", exec.args[0])
	assert.Equal(t, helperScript, exec.args[1])

	req := decodeRequest(t, exec.args[2])
	assert.Equal(t, "convert", req.Action)
	assert.Equal(t, types.FormatKeras, req.Format)
	assert.Equal(t, "models/a.h5", req.Input)
	require.NotNil(t, req.Flags)
	assert.True(t, req.Flags.BuiltinsOnly)
	require.NotNil(t, req.Flags.NewQuantizer)
	assert.False(t, *req.Flags.NewQuantizer)
}

func TestPythonConverter_ConvertFailure(t *testing.T) {
	exec := &scriptedExecutor{
		bins:   map[string]bool{"python3": true},
		stderr: "Traceback (most recent call last):\n  File \"<string>\", line 40\nOSError: Unable to open file (file signature not found)\n",
		err:    errors.New("exit status 1"),
	}
	p, err := newPythonConverter(exec, "", nil)
	require.NoError(t, err)

	_, err = p.Convert(types.ModelSource{Path: "broken.h5", Format: types.FormatKeras}, FixFlags())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConversion)
	assert.Contains(t, err.Error(), "OSError: Unable to open file")
	assert.Contains(t, err.Error(), "broken.h5")
}

func TestPythonConverter_Version(t *testing.T) {
	exec := &scriptedExecutor{bins: map[string]bool{"python": true}, stdout: "2.15.0\n"}
	p, err := newPythonConverter(exec, "python", nil)
	require.NoError(t, err)

	v, err := p.Version()
	require.NoError(t, err)
	assert.Equal(t, "2.15.0", v)
	assert.Equal(t, "version", decodeRequest(t, exec.args[2]).Action)
}

func TestPythonConverter_VersionFailure(t *testing.T) {
	exec := &scriptedExecutor{
		bins:   map[string]bool{"python3": true},
		stderr: "ModuleNotFoundError: No module named 'tensorflow'\n",
		err:    errors.New("exit status 1"),
	}
	p, err := newPythonConverter(exec, "", nil)
	require.NoError(t, err)

	_, err = p.Version()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No module named 'tensorflow'")
}

// fakeRuntime records the last RunSpec.
type fakeRuntime struct {
	images map[string]bool
	spec   container.RunSpec
	stdout string
	runErr error
}

func (f *fakeRuntime) Name() string { return "docker" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error {
	if f.images[image] {
		return nil
	}
	return errors.New("no such image")
}

func (f *fakeRuntime) Run(spec container.RunSpec, stdout, stderr io.Writer) error {
	f.spec = spec
	_, _ = io.WriteString(stdout, f.stdout)
	return f.runErr
}

func TestContainerConverter_ImageMissing(t *testing.T) {
	_, err := NewContainerConverter(&fakeRuntime{}, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoRuntime)
	assert.Contains(t, err.Error(), DefaultImage)
}

func TestContainerConverter_Convert(t *testing.T) {
	rt := &fakeRuntime{images: map[string]bool{DefaultImage: true}, stdout: "TFL3"}
	c, err := NewContainerConverter(rt, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "container:docker", c.Name())

	dir := t.TempDir()
	input := filepath.Join(dir, "saved_model")
	data, err := c.Convert(types.ModelSource{Path: input, Format: types.FormatSavedModel}, FixFlags())
	require.NoError(t, err)
	assert.Equal(t, "TFL3", string(data))

	assert.Equal(t, DefaultImage, rt.spec.Image)
	require.Len(t, rt.spec.Mounts, 1)
	assert.Equal(t, container.Mount{Source: dir, Target: inputMount, ReadOnly: true}, rt.spec.Mounts[0])

	require.Len(t, rt.spec.Args, 4)
	assert.Equal(t, []string{"python3", "-c", helperScript}, rt.spec.Args[:3])
	req := decodeRequest(t, rt.spec.Args[3])
	assert.Equal(t, inputMount+"/saved_model", req.Input)
	assert.Equal(t, types.FormatSavedModel, req.Format)
}

func TestContainerConverter_ConvertFailure(t *testing.T) {
	rt := &fakeRuntime{images: map[string]bool{"tf:custom": true}, runErr: errors.New("exit status 125")}
	c, err := NewContainerConverter(rt, "tf:custom", nil)
	require.NoError(t, err)

	_, err = c.Convert(types.ModelSource{Path: "m.h5", Format: types.FormatKeras}, ExportFlags())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConversion)
	assert.Contains(t, err.Error(), "exit status 125")
}

func TestNewConverter_UnknownBackend(t *testing.T) {
	_, err := NewConverter(types.ConverterConfig{Backend: "tpu"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tpu")
}

func TestHelperScript(t *testing.T) {
	for _, want := range []string{
		"experimental_new_quantizer",
		"_experimental_lower_tensor_list_ops",
		"TFLITE_BUILTINS",
		"Optimize.DEFAULT",
		"hasattr(converter, attr)",
		"tf.__version__",
	} {
		assert.Contains(t, helperScript, want)
	}
}
