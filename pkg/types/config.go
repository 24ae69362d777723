// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConverterBackend selects where the external converter runs.
type ConverterBackend string

const (
	// BackendPython runs the converter with a local Python interpreter that
	// has TensorFlow installed.
	BackendPython ConverterBackend = "python"

	// BackendContainer runs the converter inside a TensorFlow image.
	BackendContainer ConverterBackend = "container"
)

// ContainerRuntimeKind selects how containers are started.
type ContainerRuntimeKind string

const (
	// RuntimeAuto tries the docker CLI first and falls back to podman.
	RuntimeAuto   ContainerRuntimeKind = "auto"
	RuntimeDocker ContainerRuntimeKind = "docker"
	RuntimePodman ContainerRuntimeKind = "podman"

	// RuntimeEngine talks to the Docker Engine API directly.
	RuntimeEngine ContainerRuntimeKind = "engine"
)

// ConverterConfig holds settings for the converter backend.
type ConverterConfig struct {
	// Backend is python or container (default python).
	Backend ConverterBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// PythonBin is the interpreter used by the python backend (default python3).
	PythonBin string `json:"python_bin" yaml:"python_bin" mapstructure:"python_bin"`

	// Image is the TensorFlow image used by the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Runtime selects the container runtime (default auto).
	Runtime ContainerRuntimeKind `json:"runtime" yaml:"runtime" mapstructure:"runtime"`
}

// ExportConfig holds settings for the export command.
type ExportConfig struct {
	// ModelDir is scanned for existing .tflite files in status mode.
	ModelDir string `json:"model_dir" yaml:"model_dir" mapstructure:"model_dir"`

	// Jobs is the list of models to convert.
	Jobs []ExportJob `json:"jobs" yaml:"jobs" mapstructure:"jobs"`

	// Flags overrides the export flag preset when set.
	Flags *ConverterFlags `json:"flags,omitempty" yaml:"flags,omitempty" mapstructure:"flags"`
}

// FixConfig holds settings for the fix command.
type FixConfig struct {
	// Output is where the re-converted model is written.
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// Flags overrides the fix flag preset when set.
	Flags *ConverterFlags `json:"flags,omitempty" yaml:"flags,omitempty" mapstructure:"flags"`
}

// InspectConfig holds settings for the diagnostic inspector.
type InspectConfig struct {
	// MaxVersions maps builtin operator names to the highest version the
	// target runtime supports, e.g. FULLY_CONNECTED: 11.
	MaxVersions map[string]int32 `json:"max_versions" yaml:"max_versions" mapstructure:"max_versions"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds settings for the structured log file.
type LogConfig struct {
	Dir   string `json:"dir" yaml:"dir" mapstructure:"dir"`
	Debug bool   `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// Config groups all settings read from litecompat.yaml.
type Config struct {
	Converter ConverterConfig `json:"converter" yaml:"converter" mapstructure:"converter"`
	Export    ExportConfig    `json:"export" yaml:"export" mapstructure:"export"`
	Fix       FixConfig       `json:"fix" yaml:"fix" mapstructure:"fix"`
	Inspect   InspectConfig   `json:"inspect" yaml:"inspect" mapstructure:"inspect"`
	Ledger    LedgerConfig    `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
