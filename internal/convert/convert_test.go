// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/litecompat/internal/tflite"
	"github.com/pdiddy/litecompat/pkg/types"
)

// fakeConverter implements Converter for testing. It returns canned bytes
// or an error, depending on configuration, and counts calls.
type fakeConverter struct {
	output  []byte
	err     error
	version string
	calls   int
	flags   types.ConverterFlags
}

func (f *fakeConverter) Name() string { return "fake" }

func (f *fakeConverter) Version() (string, error) {
	if f.version == "" {
		return "", errors.New("no version")
	}
	return f.version, nil
}

func (f *fakeConverter) Convert(src types.ModelSource, flags types.ConverterFlags) ([]byte, error) {
	f.calls++
	f.flags = flags
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

// selectiveConverter fails for the listed inputs.
type selectiveConverter struct {
	fakeConverter
	fail map[string]bool
}

func (s *selectiveConverter) Convert(src types.ModelSource, flags types.ConverterFlags) ([]byte, error) {
	if s.fail[src.Path] {
		return nil, errors.New("conversion failed: bad model")
	}
	return s.fakeConverter.Convert(src, flags)
}

// memRecorder collects records in memory.
type memRecorder struct {
	records []types.RunRecord
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec types.RunRecord) error {
	m.records = append(m.records, rec)
	return m.err
}

// countingVerifier counts Verify calls and reports one FULLY_CONNECTED v11
// op per model.
type countingVerifier struct{ paths []string }

func (v *countingVerifier) Verify(w io.Writer, path string) *types.InspectionReport {
	v.paths = append(v.paths, path)
	return &types.InspectionReport{Path: path, Ops: []types.OpDetail{
		{Name: "FULLY_CONNECTED", Version: 11},
		{Name: "SOFTMAX", Version: 1},
	}}
}

// tfliteBytes returns a payload carrying the TFLite file identifier, which is
// all convertBytes checks before persisting.
func tfliteBytes(body string) []byte {
	return append([]byte("\x18\x00\x00\x00"+tflite.FileIdentifier), body...)
}

// writeModelFile creates a placeholder model input and returns its path.
func writeModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	savedModel := filepath.Join(dir, "saved_model")
	if err := os.MkdirAll(savedModel, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantFormat types.ModelFormat
		wantErr    error
	}{
		{name: "saved model directory", path: savedModel, wantFormat: types.FormatSavedModel},
		{name: "h5 file", path: writeModelFile(t, dir, "classifier.h5"), wantFormat: types.FormatKeras},
		{name: "keras file", path: writeModelFile(t, dir, "ner.keras"), wantFormat: types.FormatKeras},
		{name: "upper-case extension", path: writeModelFile(t, dir, "OLD.H5"), wantFormat: types.FormatKeras},
		{name: "tflite file", path: writeModelFile(t, dir, "model.tflite"), wantFormat: types.FormatTFLite},
		{name: "unsupported extension", path: writeModelFile(t, dir, "model.onnx"), wantErr: types.ErrUnsupportedFormat},
		{name: "missing path", path: filepath.Join(dir, "nope.h5"), wantErr: types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ResolveSource(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.path) {
					t.Errorf("error %q should contain the path", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", src.Format, tt.wantFormat)
			}
			if src.Path != tt.path {
				t.Errorf("path = %q, want %q", src.Path, tt.path)
			}
		})
	}
}

func TestConvertModel(t *testing.T) {
	dir := t.TempDir()
	input := writeModelFile(t, dir, "model.h5")
	output := filepath.Join(dir, "out", "model_quant_fixed.tflite")

	want := tfliteBytes("model-bytes")
	conv := &fakeConverter{output: want}
	src := types.ModelSource{Path: input, Format: types.FormatKeras}

	out, err := ConvertModel(conv, src, output, FixFlags())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Size != int64(len(want)) {
		t.Errorf("size = %d", out.Size)
	}
	if len(out.SHA256) != 64 {
		t.Errorf("sha256 = %q, want 64 hex chars", out.SHA256)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("output = %q, want converter bytes verbatim", data)
	}
	if conv.flags.LowerTensorListOps == nil || *conv.flags.LowerTensorListOps {
		t.Error("fix preset should turn tensor list lowering off")
	}
}

func TestConvertModel_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	input := writeModelFile(t, dir, "model.h5")
	output := filepath.Join(dir, "model.tflite")
	if err := os.WriteFile(output, []byte("an older and much longer model file"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := &fakeConverter{output: tfliteBytes("new")}
	if _, err := ConvertModel(conv, types.ModelSource{Path: input, Format: types.FormatKeras}, output, ExportFlags()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(output)
	if !bytes.Equal(data, tfliteBytes("new")) {
		t.Errorf("output = %q, want %q", data, tfliteBytes("new"))
	}
}

func TestConvertModel_NoOutputOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		conv    *fakeConverter
		format  types.ModelFormat
		wantErr error
		called  bool
	}{
		{
			name:   "converter error",
			conv:   &fakeConverter{err: errors.New("boom")},
			format: types.FormatKeras,
			called: true,
		},
		{
			name:    "empty output",
			conv:    &fakeConverter{},
			format:  types.FormatSavedModel,
			wantErr: types.ErrConversion,
			called:  true,
		},
		{
			name:    "stray text before flatbuffer",
			conv:    &fakeConverter{output: []byte("Saved artifact at '/tmp/x'.\nTFL3BYTES")},
			format:  types.FormatKeras,
			wantErr: types.ErrConversion,
			called:  true,
		},
		{
			name:    "too short for an identifier",
			conv:    &fakeConverter{output: []byte("TFL3")},
			format:  types.FormatSavedModel,
			wantErr: types.ErrConversion,
			called:  true,
		},
		{
			name:    "tflite input never converted",
			conv:    &fakeConverter{output: []byte("x")},
			format:  types.FormatTFLite,
			wantErr: types.ErrAlreadyTFLite,
		},
		{
			name:    "unknown format never converted",
			conv:    &fakeConverter{output: []byte("x")},
			format:  "onnx",
			wantErr: types.ErrUnsupportedFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			output := filepath.Join(dir, "out.tflite")

			_, err := ConvertModel(tt.conv, types.ModelSource{Path: "in", Format: tt.format}, output, ExportFlags())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if called := tt.conv.calls > 0; called != tt.called {
				t.Errorf("converter called = %v, want %v", called, tt.called)
			}
			if _, err := os.Stat(output); !os.IsNotExist(err) {
				t.Error("no output file should be written")
			}
		})
	}
}

func TestFlagPresets(t *testing.T) {
	export := ExportFlags()
	if !export.BuiltinsOnly || !export.OptimizeDefault {
		t.Error("export preset should restrict to builtins and optimize by default")
	}
	if export.NewQuantizer == nil || *export.NewQuantizer {
		t.Error("export preset should disable the new quantizer")
	}
	if export.NewConverter == nil || *export.NewConverter {
		t.Error("export preset should disable the new converter")
	}
	if export.LowerTensorListOps != nil {
		t.Error("export preset should leave tensor list lowering alone")
	}

	fix := FixFlags()
	if fix.NewConverter != nil {
		t.Error("fix preset should leave the new converter alone")
	}

	var out bytes.Buffer
	DescribeFlags(&out, export)
	got := out.String()
	for _, want := range []string{
		"experimental_new_quantizer = False",
		"experimental_new_converter = False",
		"optimizations = [DEFAULT]",
		"target_spec.supported_ops = [TFLITE_BUILTINS]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DescribeFlags output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "lower_tensor_list_ops") {
		t.Error("unset flags should not be described")
	}
}

func TestCheckInputs(t *testing.T) {
	dir := t.TempDir()
	present := writeModelFile(t, dir, "classifier.h5")
	missing := filepath.Join(dir, "ner_model.h5")

	var out bytes.Buffer
	err := CheckInputs([]types.ExportJob{
		{Input: present, Output: "a.tflite"},
		{Input: missing, Output: "b.tflite"},
	}, &out)
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(out.String(), "Model not found: "+missing) {
		t.Errorf("output should name the missing model, got:\n%s", out.String())
	}

	out.Reset()
	if err := CheckInputs([]types.ExportJob{{Input: present}}, &out); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	out.Reset()
	err = CheckInputs([]types.ExportJob{{Input: present, Type: types.FormatSavedModel}}, &out)
	if !errors.Is(err, types.ErrUnsupportedFormat) {
		t.Errorf("type mismatch error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportBatch(t *testing.T) {
	dir := t.TempDir()
	a := writeModelFile(t, dir, "a.h5")
	b := writeModelFile(t, dir, "b.keras")
	c := writeModelFile(t, dir, "c.h5")

	conv := &selectiveConverter{
		fakeConverter: fakeConverter{output: tfliteBytes(""), version: "2.15.0"},
		fail:          map[string]bool{c: true},
	}
	rec := &memRecorder{}
	ver := &countingVerifier{}
	e := &Exporter{Converter: conv, Flags: ExportFlags(), Recorder: rec, Verifier: ver}

	jobs := []types.ExportJob{
		{Input: a, Output: filepath.Join(dir, "model", "a.tflite")},
		{Input: b, Output: filepath.Join(dir, "model", "b.tflite")},
		{Input: c, Output: filepath.Join(dir, "model", "c.tflite")},
	}

	var log bytes.Buffer
	result := e.ExportBatch(context.Background(), jobs, &log)

	if result.Converted != 2 {
		t.Errorf("converted = %d, want 2", result.Converted)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 {
		t.Errorf("total = %d, want 3", result.Total())
	}

	output := log.String()
	for _, want := range []string{
		"Converting: " + a,
		"Conversion successful! Size:",
		"Model saved successfully!",
		"Conversion failed:",
		"Conversion complete: 2/3 successful",
		"Some conversions failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("batch output missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "model", "c.tflite")); !os.IsNotExist(err) {
		t.Error("failed job should leave no output")
	}
	if len(ver.paths) != 2 {
		t.Errorf("verified %d models, want 2", len(ver.paths))
	}

	if len(rec.records) != 3 {
		t.Fatalf("recorded %d runs, want 3", len(rec.records))
	}
	if rec.records[0].Status != types.ConversionDone || rec.records[0].Size != 8 {
		t.Errorf("first record = %+v", rec.records[0])
	}
	if rec.records[2].Status != types.ConversionFailed || rec.records[2].Error == "" {
		t.Errorf("failed record = %+v", rec.records[2])
	}
	if got := rec.records[0].FCVersions; len(got) != 1 || got[0] != 11 {
		t.Errorf("verified record FC versions = %v, want [11]", got)
	}
	if rec.records[2].FCVersions != nil {
		t.Errorf("failed record FC versions = %v, want nil", rec.records[2].FCVersions)
	}
	if rec.records[0].ConverterVersion != "2.15.0" || rec.records[0].Backend != "fake" {
		t.Errorf("record should carry backend and version, got %+v", rec.records[0])
	}
	if !strings.Contains(rec.records[0].Flags, `"builtins_only":true`) {
		t.Errorf("record flags = %s", rec.records[0].Flags)
	}
}

func TestExportBatch_AllSucceed(t *testing.T) {
	dir := t.TempDir()
	a := writeModelFile(t, dir, "a.h5")

	e := &Exporter{
		Converter: &fakeConverter{output: tfliteBytes("")},
		Flags:     ExportFlags(),
		Recorder:  &memRecorder{err: errors.New("ledger locked")},
	}

	var log bytes.Buffer
	result := e.ExportBatch(context.Background(), []types.ExportJob{
		{Input: a, Output: filepath.Join(dir, "a.tflite")},
	}, &log)

	if result.HasFailures() {
		t.Error("recorder errors must not fail the export")
	}
	if !strings.Contains(log.String(), "All models converted successfully!") {
		t.Errorf("expected success summary, got:\n%s", log.String())
	}
	if e.ConverterVersion() != "unknown" {
		t.Errorf("version = %q, want unknown when the backend cannot tell", e.ConverterVersion())
	}
}

func TestEmitsV12(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"2.15.0", false},
		{"2.15.1", false},
		{"2.16.1", true},
		{"2.17.0-rc1", true},
		{"3.0.0", true},
		{"1.15.5", false},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := EmitsV12(tt.version); got != tt.want {
			t.Errorf("EmitsV12(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	PrintVersion(&out, "python", "2.15.0")
	if strings.Contains(out.String(), "WARNING") {
		t.Errorf("2.15 should not warn:\n%s", out.String())
	}

	out.Reset()
	PrintVersion(&out, "python", "2.16.1")
	got := out.String()
	if !strings.Contains(got, "FULLY_CONNECTED v12") || !strings.Contains(got, "pip install tensorflow==2.15.0") {
		t.Errorf("2.16 should print the v12 warning:\n%s", got)
	}
}
