// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litecompat/pkg/types"
)

const yamlManifest = `# models to re-export
jobs:
  - input: models/classifier.h5
    output: model/classifier_model.tflite
  - input: models/ner_saved_model
    output: model/ner_model.tflite
    type: saved_model
flags:
  builtins_only: true
  experimental_new_quantizer: false
  optimize_default: true
`

const jsoncManifest = `{
  // Classifier model
  "jobs": [
    {"input": "models/classifier.keras", "output": "model/classifier_model.tflite"},
    /* NER model */
    {"input": "models/ner", "output": "model/ner_model.tflite", "type": "saved_model"},
  ],
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_YAML(t *testing.T) {
	m, err := Load(writeFile(t, "jobs.yaml", yamlManifest))
	require.NoError(t, err)

	require.Len(t, m.Jobs, 2)
	assert.Equal(t, types.ExportJob{
		Input:  "models/classifier.h5",
		Output: "model/classifier_model.tflite",
		Type:   types.FormatKeras,
	}, m.Jobs[0], "type is inferred from the extension")
	assert.Equal(t, types.FormatSavedModel, m.Jobs[1].Type)

	require.NotNil(t, m.Flags)
	assert.True(t, m.Flags.BuiltinsOnly)
	require.NotNil(t, m.Flags.NewQuantizer)
	assert.False(t, *m.Flags.NewQuantizer)
	assert.Nil(t, m.Flags.NewConverter)
}

func TestLoad_JSONC(t *testing.T) {
	m, err := Load(writeFile(t, "jobs.jsonc", jsoncManifest))
	require.NoError(t, err)

	require.Len(t, m.Jobs, 2)
	assert.Equal(t, types.FormatKeras, m.Jobs[0].Type)
	assert.Equal(t, "models/ner", m.Jobs[1].Input)
	assert.Nil(t, m.Flags)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		ext     string
		wantErr string
	}{
		{name: "unknown extension", data: "{}", ext: ".toml", wantErr: "unsupported manifest extension"},
		{name: "no jobs", data: "jobs: []\n", ext: ".yml", wantErr: "no jobs"},
		{name: "missing output", data: `{"jobs":[{"input":"a.h5"}]}`, ext: ".json", wantErr: "job 1: input and output are required"},
		{name: "bad type", data: "jobs:\n  - {input: a.onnx, output: a.tflite, type: onnx}\n", ext: ".yaml", wantErr: "unsupported model format"},
		{name: "malformed yaml", data: "jobs: [", ext: ".yaml", wantErr: "parsing YAML"},
		{name: "malformed json", data: `{"jobs": [}`, ext: ".json", wantErr: "parsing JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none.yaml")
}

func TestDefaults(t *testing.T) {
	jobs := Defaults()
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, types.FormatKeras, j.Type)
		assert.NotEmpty(t, j.Output)
	}
}
