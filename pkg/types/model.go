// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ModelFormat identifies how a model is serialized on disk.
type ModelFormat string

const (
	// FormatKeras is a single-file Keras checkpoint (.h5 or .keras).
	FormatKeras ModelFormat = "keras"

	// FormatSavedModel is a TensorFlow SavedModel directory.
	FormatSavedModel ModelFormat = "saved_model"

	// FormatTFLite is an already converted flatbuffer. It is only ever
	// inspected, never converted again.
	FormatTFLite ModelFormat = "tflite"
)

// Convertible reports whether the converter accepts this format as input.
func (f ModelFormat) Convertible() bool {
	return f == FormatKeras || f == FormatSavedModel
}

// ModelSource is a resolved input model: the path exists and its format
// was recognized.
type ModelSource struct {
	Path   string      `json:"path" yaml:"path"`
	Format ModelFormat `json:"format" yaml:"format"`
}

// ExportJob is one entry of the export list: convert Input into Output.
// Type may be left empty, in which case it is inferred from Input.
type ExportJob struct {
	Input  string      `json:"input" yaml:"input" mapstructure:"input"`
	Output string      `json:"output" yaml:"output" mapstructure:"output"`
	Type   ModelFormat `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
}

// ConversionStatus is the outcome of a single conversion attempt.
type ConversionStatus string

const (
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID               int64            `json:"id" yaml:"id"`
	Input            string           `json:"input" yaml:"input"`
	Format           ModelFormat      `json:"format" yaml:"format"`
	Output           string           `json:"output" yaml:"output"`
	Flags            string           `json:"flags" yaml:"flags"`
	Backend          string           `json:"backend" yaml:"backend"`
	ConverterVersion string           `json:"converter_version" yaml:"converter_version"`
	Status           ConversionStatus `json:"status" yaml:"status"`
	Size             int64            `json:"size" yaml:"size"`
	SHA256           string           `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Error            string           `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt        time.Time        `json:"created_at" yaml:"created_at"`

	// FCVersions lists the FULLY_CONNECTED versions found when the written
	// model was verified, in graph order. Nil when it was not verified.
	FCVersions []int32 `json:"fc_versions,omitempty" yaml:"fc_versions,omitempty"`
}
