// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cleanup, err := Setup(Config{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, IsReady())
	assert.Equal(t, filepath.Join(dir, "litecompat.log"), Path())

	L().Info("convert.done", "input", "a.h5", "bytes", 2048)
	L().Debug("hidden")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(filepath.Join(dir, "litecompat.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "debug records are dropped at info level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "convert.done", rec["msg"])
	assert.Equal(t, "a.h5", rec["input"])
	assert.True(t, strings.HasSuffix(rec["time"].(string), "Z"), "time is UTC")
}

func TestSetup_Debug(t *testing.T) {
	dir := t.TempDir()
	cleanup, err := Setup(Config{Dir: dir, Debug: true})
	require.NoError(t, err)
	L().Debug("visible")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(filepath.Join(dir, "litecompat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"visible"`)
	assert.Contains(t, string(data), `"source"`)
}

func TestCleanup_RestoresDiscard(t *testing.T) {
	cleanup, err := Setup(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, cleanup())

	assert.Error(t, IsReady())
	assert.Empty(t, Path())
	L().Info("dropped")
}

func TestSetup_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Setup(Config{Dir: filepath.Join(blocker, "logs")})
	require.Error(t, err)
	assert.Error(t, IsReady())
}
