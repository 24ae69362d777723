// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest loads export job lists from YAML or JSONC files.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litecompat/pkg/types"
)

// Manifest is an export job list with an optional flag override.
type Manifest struct {
	Jobs  []types.ExportJob     `json:"jobs" yaml:"jobs"`
	Flags *types.ConverterFlags `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Defaults returns the placeholder job list used when neither a manifest nor
// the config file names any jobs. The paths are meant to be edited.
func Defaults() []types.ExportJob {
	return []types.ExportJob{
		{Input: "path/to/your/classifier_model.h5", Output: "model/classifier_model.tflite", Type: types.FormatKeras},
		{Input: "path/to/your/ner_model.h5", Output: "model/ner_model.tflite", Type: types.FormatKeras},
	}
}

// Load reads the manifest at path. The extension picks the decoder: .yaml
// and .yml are YAML, .json and .jsonc are JSON with comments and trailing
// commas allowed.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document. ext is the file extension including the
// dot.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q (use .yaml, .yml, .json or .jsonc)", ext)
	}

	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

// normalize validates every job and fills in types that the input extension
// makes obvious. Directories keep an empty type until they are resolved.
func (m *Manifest) normalize() error {
	if len(m.Jobs) == 0 {
		return errors.New("no jobs listed")
	}
	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.Input == "" || job.Output == "" {
			return fmt.Errorf("job %d: input and output are required", i+1)
		}
		switch job.Type {
		case "":
			switch strings.ToLower(filepath.Ext(job.Input)) {
			case ".h5", ".keras":
				job.Type = types.FormatKeras
			}
		case types.FormatKeras, types.FormatSavedModel:
		default:
			return fmt.Errorf("job %d: %w: type %q (want keras or saved_model)", i+1, types.ErrUnsupportedFormat, job.Type)
		}
	}
	return nil
}
