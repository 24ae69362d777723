// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert re-exports trained models to the .tflite format through an
// external TensorFlow converter. It resolves inputs, applies the converter
// flag presets, persists the produced flatbuffer and runs batch exports.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/pdiddy/litecompat/internal/tflite"
	"github.com/pdiddy/litecompat/pkg/types"
)

const rule = "============================================================"

// Converter turns a Keras or SavedModel source into .tflite bytes. Backends
// (local python, container image) implement this interface.
type Converter interface {
	// Name identifies the backend in logs and the run ledger.
	Name() string

	// Version returns the TensorFlow version the backend converts with.
	Version() (string, error)

	// Convert runs the converter on src with flags applied and returns the
	// serialized model. Errors wrap types.ErrConversion.
	Convert(src types.ModelSource, flags types.ConverterFlags) ([]byte, error)
}

// Verifier re-opens a written model and prints its operator versions. It
// returns the report, or nil when the model could not be inspected; problems
// are printed, never returned as errors.
type Verifier interface {
	Verify(w io.Writer, path string) *types.InspectionReport
}

// Recorder persists the outcome of each conversion attempt.
type Recorder interface {
	Record(ctx context.Context, rec types.RunRecord) error
}

// Output describes a model written to disk.
type Output struct {
	Path   string
	Size   int64
	SHA256 string
}

// KB returns the output size in kilobytes.
func (o Output) KB() float64 { return float64(o.Size) / 1024 }

// BatchResult holds the outcome of a batch export run.
type BatchResult struct {
	Converted int
	Failed    int
}

// Total returns the number of jobs processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any job failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// convertBytes runs the converter, refusing inputs it cannot take and output
// that does not carry the TFLite file identifier.
func convertBytes(c Converter, src types.ModelSource, flags types.ConverterFlags) ([]byte, error) {
	switch {
	case src.Format == types.FormatTFLite:
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyTFLite, src.Path)
	case !src.Format.Convertible():
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedFormat, src.Path)
	}

	data, err := c.Convert(src, flags)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: converter produced empty output for %s", types.ErrConversion, src.Path)
	}
	if len(data) < 8 || string(data[4:8]) != tflite.FileIdentifier {
		return nil, fmt.Errorf("%w: converter output for %s is not a %s flatbuffer (%q...)",
			types.ErrConversion, src.Path, tflite.FileIdentifier, head(data, 32))
	}
	return data, nil
}

// Save writes data to path, creating the parent directory and replacing any
// existing file. The file is written to a temporary sibling and renamed, so
// readers see the old model or the new one, never a truncated mix.
func Save(path string, data []byte) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Output{}, fmt.Errorf("creating output directory for %s: %w", path, err)
	}
	if err := atomicwriter.WriteFile(path, data, 0o644); err != nil {
		return Output{}, fmt.Errorf("writing %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return Output{Path: path, Size: int64(len(data)), SHA256: hex.EncodeToString(sum[:])}, nil
}

// ConvertModel converts src and saves the result to output. Nothing is
// written when the conversion fails.
func ConvertModel(c Converter, src types.ModelSource, output string, flags types.ConverterFlags) (Output, error) {
	data, err := convertBytes(c, src, flags)
	if err != nil {
		return Output{}, err
	}
	return Save(output, data)
}

// Exporter runs export jobs against one converter and flag set, verifying
// and recording each result.
type Exporter struct {
	Converter Converter
	Flags     types.ConverterFlags

	// Verifier, Recorder and Logger are optional.
	Verifier Verifier
	Recorder Recorder
	Logger   *slog.Logger

	version string
}

// ConverterVersion returns the backend's TensorFlow version, asking the
// backend once.
func (e *Exporter) ConverterVersion() string {
	if e.version != "" {
		return e.version
	}
	v, err := e.Converter.Version()
	if err != nil {
		e.logger().Warn("converter.version_unavailable", "backend", e.Converter.Name(), "error", err)
		v = "unknown"
	}
	e.version = v
	return v
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// CheckInputs resolves every job input before anything is converted. The
// first missing or unrecognized input is reported and returned.
func CheckInputs(jobs []types.ExportJob, w io.Writer) error {
	for _, job := range jobs {
		if _, err := resolveJob(job); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				fmt.Fprintf(w, "Model not found: %s\n", job.Input)
			} else {
				fmt.Fprintf(w, "Unusable model: %v\n", err)
			}
			fmt.Fprintln(w, "   Please update the path in the export list")
			return err
		}
	}
	return nil
}

// ExportModel converts one job, printing progress to w, then verifies the
// written model.
func (e *Exporter) ExportModel(ctx context.Context, job types.ExportJob, w io.Writer) (Output, error) {
	fmt.Fprintf(w, "\n%s\nConverting: %s\nOutput: %s\n%s\n", rule, job.Input, job.Output, rule)

	src, err := resolveJob(job)
	if err != nil {
		fmt.Fprintf(w, "Conversion failed: %v\n", err)
		e.record(ctx, job, src, Output{}, nil, err)
		return Output{}, err
	}

	DescribeFlags(w, e.Flags)
	fmt.Fprintln(w, "\nConverting model...")

	start := time.Now()
	data, err := convertBytes(e.Converter, src, e.Flags)
	if err != nil {
		fmt.Fprintf(w, "Conversion failed: %v\n", err)
		e.record(ctx, job, src, Output{}, nil, err)
		return Output{}, err
	}
	fmt.Fprintf(w, "Conversion successful! Size: %.2f KB\n", float64(len(data))/1024)

	fmt.Fprintf(w, "\nSaving to: %s\n", job.Output)
	out, err := Save(job.Output, data)
	if err != nil {
		fmt.Fprintf(w, "Save failed: %v\n", err)
		e.record(ctx, job, src, Output{}, nil, err)
		return Output{}, err
	}
	fmt.Fprintln(w, "Model saved successfully!")

	e.logger().Info("convert.done",
		"input", src.Path,
		"output", out.Path,
		"bytes", out.Size,
		"duration", time.Since(start))

	var report *types.InspectionReport
	if e.Verifier != nil {
		report = e.Verifier.Verify(w, out.Path)
	}
	e.record(ctx, job, src, out, report, nil)
	return out, nil
}

// Fix converts a single resolved source to output with the fix command's
// progress messages. Verification is left to the caller.
func (e *Exporter) Fix(ctx context.Context, src types.ModelSource, output string, w io.Writer) (Output, error) {
	job := types.ExportJob{Input: src.Path, Output: output, Type: src.Format}
	switch src.Format {
	case types.FormatSavedModel:
		fmt.Fprintf(w, "\nConverting from SavedModel: %s\n", src.Path)
	default:
		fmt.Fprintf(w, "\nConverting from Keras model: %s\n", src.Path)
	}
	DescribeFlags(w, e.Flags)

	out, err := ConvertModel(e.Converter, src, output, e.Flags)
	e.record(ctx, job, src, out, nil, err)
	if err != nil {
		fmt.Fprintf(w, "\nConversion failed: %v\n", err)
		return Output{}, err
	}

	e.logger().Info("convert.done", "input", src.Path, "output", out.Path, "bytes", out.Size)
	fmt.Fprintf(w, "\nConverted model saved to: %s\n", out.Path)
	fmt.Fprintf(w, "   Size: %.2f KB\n", out.KB())
	return out, nil
}

// ExportBatch converts every job in order, printing per-job progress and a
// summary with next steps or troubleshooting advice.
func (e *Exporter) ExportBatch(ctx context.Context, jobs []types.ExportJob, w io.Writer) BatchResult {
	var result BatchResult
	for _, job := range jobs {
		if _, err := e.ExportModel(ctx, job, w); err != nil {
			result.Failed++
		} else {
			result.Converted++
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Conversion complete: %d/%d successful\n", result.Converted, result.Total())
	fmt.Fprintln(w, rule)

	if !result.HasFailures() {
		fmt.Fprintln(w, "\nAll models converted successfully!")
		fmt.Fprintln(w, "\nNext steps:")
		fmt.Fprintln(w, "1. Copy the .tflite files into your app's model directory")
		fmt.Fprintln(w, "2. Hot restart the app")
		fmt.Fprintln(w, "3. Check logs for successful model loading")
	} else {
		fmt.Fprintln(w, "\nSome conversions failed")
		fmt.Fprintln(w, "Check the errors above and try:")
		fmt.Fprintf(w, "1. pip install tensorflow==%s (or set converter.image to %s)\n", LastV11Release, DefaultImage)
		fmt.Fprintln(w, "2. Re-run litecompat export --run")
	}

	e.logger().Info("export.finished", "converted", result.Converted, "failed", result.Failed)
	return result
}

// record appends the attempt to the ledger. A non-nil report adds the
// FULLY_CONNECTED versions the written model was verified with.
func (e *Exporter) record(ctx context.Context, job types.ExportJob, src types.ModelSource, out Output, report *types.InspectionReport, convErr error) {
	if e.Recorder == nil {
		return
	}

	flags, _ := json.Marshal(e.Flags)
	format := src.Format
	if format == "" {
		format = job.Type
	}
	rec := types.RunRecord{
		Input:            job.Input,
		Format:           format,
		Output:           job.Output,
		Flags:            string(flags),
		Backend:          e.Converter.Name(),
		ConverterVersion: e.ConverterVersion(),
		Status:           types.ConversionDone,
		Size:             out.Size,
		SHA256:           out.SHA256,
		CreatedAt:        time.Now().UTC(),
	}
	if convErr != nil {
		rec.Status = types.ConversionFailed
		rec.Error = convErr.Error()
	}
	if report != nil {
		rec.FCVersions = []int32{}
		for _, op := range report.FullyConnected() {
			rec.FCVersions = append(rec.FCVersions, op.Version)
		}
	}

	if err := e.Recorder.Record(ctx, rec); err != nil {
		e.logger().Warn("ledger.record_failed", "input", job.Input, "error", err)
	}
}

// LastV11Release is the last TensorFlow release whose converter emits
// FULLY_CONNECTED v11.
const LastV11Release = "2.15.0"

// EmitsV12 reports whether a TensorFlow version is 2.16 or newer. Versions
// that do not parse are assumed not to.
func EmitsV12(version string) bool {
	var major, minor int
	if _, err := fmt.Sscanf(version, "%d.%d", &major, &minor); err != nil {
		return false
	}
	return major > 2 || (major == 2 && minor >= 16)
}

// PrintVersion prints the converter's TensorFlow version and, when that
// version emits FULLY_CONNECTED v12, the warning with the known remedies.
func PrintVersion(w io.Writer, backend, version string) {
	fmt.Fprintf(w, "TensorFlow version: %s (%s)\n", version, backend)
	if !EmitsV12(version) {
		return
	}
	fmt.Fprintln(w, "\nWARNING: TensorFlow 2.16+ uses FULLY_CONNECTED v12")
	fmt.Fprintln(w, "WARNING: older TFLite runtimes need v11 or earlier")
	fmt.Fprintln(w, "\nSOLUTIONS:")
	fmt.Fprintf(w, "1. Downgrade TensorFlow: pip install tensorflow==%s\n", LastV11Release)
	fmt.Fprintln(w, "2. OR use experimental_new_quantizer=False flag")
	fmt.Fprintln(w, "3. OR rebuild the app's TFLite runtime with a newer version")
	fmt.Fprintln(w)
}

// head returns at most n leading bytes of data.
func head(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}

// lastLine returns the last non-empty line of s, which for a Python
// traceback is the exception message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
