// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/litecompat/pkg/types"
)

// InferFormat maps a path to a model format by its shape on disk: a
// directory is a SavedModel, otherwise the extension decides. The path must
// exist.
func InferFormat(path string, info os.FileInfo) (types.ModelFormat, error) {
	if info.IsDir() {
		return types.FormatSavedModel, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".keras":
		return types.FormatKeras, nil
	case ".tflite":
		return types.FormatTFLite, nil
	}
	return "", fmt.Errorf("%w: %s (supported: SavedModel directory, .h5, .keras)", types.ErrUnsupportedFormat, path)
}

// ResolveSource checks that path exists and recognizes its format.
func ResolveSource(path string) (types.ModelSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ModelSource{}, fmt.Errorf("%w: %s", types.ErrNotFound, path)
		}
		return types.ModelSource{}, fmt.Errorf("checking %s: %w", path, err)
	}

	format, err := InferFormat(path, info)
	if err != nil {
		return types.ModelSource{}, err
	}
	return types.ModelSource{Path: path, Format: format}, nil
}

// resolveJob resolves a job input, honoring an explicit type when the job
// names one.
func resolveJob(job types.ExportJob) (types.ModelSource, error) {
	src, err := ResolveSource(job.Input)
	if err != nil {
		return src, err
	}
	if job.Type != "" && job.Type != src.Format {
		return src, fmt.Errorf("%w: %s is %s, job says %s", types.ErrUnsupportedFormat, job.Input, src.Format, job.Type)
	}
	return src, nil
}
