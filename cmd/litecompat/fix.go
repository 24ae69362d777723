// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litecompat/internal/convert"
	"github.com/pdiddy/litecompat/internal/inspect"
	"github.com/pdiddy/litecompat/internal/logger"
	"github.com/pdiddy/litecompat/pkg/types"
)

var fixCmd = &cobra.Command{
	Use:   "fix <model_path>",
	Short: "Re-convert one model with older-runtime compatibility settings",
	Long: `Fix converts a single SavedModel directory or Keras .h5/.keras file to
.tflite with builtin ops only, tensor list lowering disabled, the new quantizer
disabled and default optimizations, then checks the result.

A .tflite input is only inspected: a converted model cannot be converted
again, so fix reports its operators and exits with status 1.`,
	Example: `  litecompat fix saved_model/
  litecompat fix model.h5
  litecompat fix model.tflite`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one model path, got %d\n\nUsage:\n%s", len(args), cmd.Example)
		}
		return nil
	},
	RunE: runFix,
}

func init() {
	fixCmd.Flags().String("output", "", "output .tflite path (default from config: model/model_quant_fixed.tflite)")

	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.Fix.Output
	}
	return fixModel(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0], output)
}

func fixModel(ctx context.Context, w, diag io.Writer, cfg types.Config, input, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(w, "%s\nTFLite Model Compatibility Fixer\n%s\n", rule, rule)

	src, err := convert.ResolveSource(input)
	switch {
	case errors.Is(err, types.ErrNotFound):
		fmt.Fprintf(w, "\nError: Path not found: %s\n", input)
		return err
	case errors.Is(err, types.ErrUnsupportedFormat):
		fmt.Fprintf(w, "\nUnsupported model format: %s\n", input)
		fmt.Fprintln(w, "Supported formats: SavedModel (directory), .h5, .keras")
		return err
	case err != nil:
		return err
	}

	insp := inspect.New(cfg.Inspect.MaxVersions)

	if src.Format == types.FormatTFLite {
		fmt.Fprintf(w, "\nInput is already a TFLite file: %s\n", input)
		fmt.Fprintln(w, "Checking model ops...")
		if insp.Check(w, input) {
			fmt.Fprintln(w, "\nA converted model cannot be fixed in place.")
			fmt.Fprintln(w, "\nYou need to re-convert from the original model:")
			fmt.Fprintln(w, "  1. Find your original SavedModel or .h5 file")
			fmt.Fprintln(w, "  2. Run: litecompat fix <original_model>")
		}
		return fmt.Errorf("%w: %s", types.ErrAlreadyTFLite, input)
	}

	flags := convert.FixFlags()
	if cfg.Fix.Flags != nil {
		flags = *cfg.Fix.Flags
	}

	conv, err := newConverter(cfg.Converter, diag)
	if err != nil {
		return err
	}

	recorder, closeLedger := openLedger(cfg.Ledger)
	defer closeLedger()

	exporter := &convert.Exporter{
		Converter: conv,
		Flags:     flags,
		Recorder:  recorder,
		Logger:    logger.L(),
	}
	fmt.Fprintln(w)
	convert.PrintVersion(w, conv.Name(), exporter.ConverterVersion())

	out, err := exporter.Fix(ctx, src, output, w)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nVerifying converted model...")
	if !insp.Check(w, out.Path) {
		fmt.Fprintln(w, "\nConverted model still has issues.")
		fmt.Fprintln(w, "You may need to retrain your model with an older TensorFlow version.")
		return nil
	}

	fmt.Fprintln(w, "\nSUCCESS! Model converted successfully!")
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  1. Copy to your app project:")
	fmt.Fprintf(w, "     cp %s model/model_quant.tflite\n", out.Path)
	fmt.Fprintln(w, "  2. Rebuild the app")
	return nil
}
