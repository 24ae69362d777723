// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors shared by the conversion, inspection and CLI layers.
// Callers wrap them with fmt.Errorf("...: %w") and classify with errors.Is.
var (
	ErrNotFound          = errors.New("path not found")
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrAlreadyTFLite     = errors.New("input is already a TFLite file")
	ErrConversion        = errors.New("conversion failed")
	ErrInspect           = errors.New("cannot inspect model")
	ErrNoRuntime         = errors.New("no converter runtime available")
)
