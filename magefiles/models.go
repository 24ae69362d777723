//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/sh"
)

// Export converts the configured models with the v11 flag preset.
func Export() error {
	return sh.RunV("go", "run", cmdPkg, "export", "--run")
}

// Status lists the .tflite models in the model directory with their FULLY_CONNECTED versions.
func Status() error {
	return sh.RunV("go", "run", cmdPkg, "export")
}

// Inspect prints the operator versions of every .tflite file in model/.
func Inspect() error {
	files, err := tfliteFiles("model")
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := sh.RunV("go", "run", cmdPkg, "inspect", f); err != nil {
			return err
		}
	}
	return nil
}

func tfliteFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.tflite"))
}
