// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litecompat/internal/container"
	"github.com/pdiddy/litecompat/pkg/types"
)

// DefaultPythonBin is the interpreter used when none is configured.
const DefaultPythonBin = "python3"

//go:embed helper/tflite_convert.py
var helperScript string

// request is the JSON argument understood by the helper script.
type request struct {
	Action string                `json:"action"`
	Format types.ModelFormat     `json:"format,omitempty"`
	Input  string                `json:"input,omitempty"`
	Flags  *types.ConverterFlags `json:"flags,omitempty"`
}

// runFunc runs the helper with its encoded request, wiring its output
// streams.
type runFunc func(arg string, stdout, stderr io.Writer) error

// callHelper runs the helper and returns its stdout. Stderr is copied to log
// as it arrives; on failure its last line becomes the error message.
func callHelper(run runFunc, req request, log io.Writer) ([]byte, error) {
	arg, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding helper request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	errOut := io.Writer(&stderr)
	if log != nil {
		errOut = io.MultiWriter(&stderr, log)
	}

	if err := run(string(arg), &stdout, errOut); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// PythonConverter runs the converter with a local interpreter that has
// TensorFlow installed.
type PythonConverter struct {
	bin  string
	log  io.Writer
	exec container.Executor
}

// NewPythonConverter checks that bin is on PATH. Converter diagnostics are
// streamed to log, which may be nil.
func NewPythonConverter(bin string, log io.Writer) (*PythonConverter, error) {
	return newPythonConverter(container.OSExecutor{}, bin, log)
}

func newPythonConverter(exec container.Executor, bin string, log io.Writer) (*PythonConverter, error) {
	if bin == "" {
		bin = DefaultPythonBin
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: python interpreter %s not found", types.ErrNoRuntime, bin)
	}
	return &PythonConverter{bin: bin, log: log, exec: exec}, nil
}

func (p *PythonConverter) Name() string { return string(types.BackendPython) }

func (p *PythonConverter) run(arg string, stdout, stderr io.Writer) error {
	return p.exec.RunPiped(p.bin, []string{"-c", helperScript, arg}, nil, stdout, stderr)
}

func (p *PythonConverter) Version() (string, error) {
	out, err := callHelper(p.run, request{Action: "version"}, nil)
	if err != nil {
		return "", fmt.Errorf("querying TensorFlow version with %s: %w", p.bin, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *PythonConverter) Convert(src types.ModelSource, flags types.ConverterFlags) ([]byte, error) {
	req := request{Action: "convert", Format: src.Format, Input: src.Path, Flags: &flags}
	data, err := callHelper(p.run, req, p.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrConversion, src.Path, err)
	}
	return data, nil
}
