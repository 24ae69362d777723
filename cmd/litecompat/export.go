// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litecompat/internal/convert"
	"github.com/pdiddy/litecompat/internal/inspect"
	"github.com/pdiddy/litecompat/internal/logger"
	"github.com/pdiddy/litecompat/internal/manifest"
	"github.com/pdiddy/litecompat/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export models to .tflite with v11-compatible converter flags",
	Long: `Export converts every job in the export list (Keras .h5/.keras files or
SavedModel directories) to .tflite using builtin ops only, the new quantizer
and new converter disabled, and default optimizations. Each written model is
re-opened and its FULLY_CONNECTED versions reported.

Without --run, export only lists the .tflite files already in the model
directory and prints the known fixes. Jobs come from --manifest, then
export.jobs in the config file, then two placeholder entries to edit.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Bool("run", false, "convert the listed models instead of printing the status")
	exportCmd.Flags().String("manifest", "", "YAML or JSONC file listing export jobs")
	exportCmd.Flags().String("model-dir", "", "directory scanned for existing .tflite files (default from config: model)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	run, _ := cmd.Flags().GetBool("run")
	if !run {
		modelDir, _ := cmd.Flags().GetString("model-dir")
		if modelDir == "" {
			modelDir = cfg.Export.ModelDir
		}
		printExportStatus(w, modelDir)
		return nil
	}

	manifestPath, _ := cmd.Flags().GetString("manifest")
	jobs, flags, err := exportPlan(cfg, manifestPath)
	if err != nil {
		return err
	}
	return exportModels(cmd.Context(), w, cmd.ErrOrStderr(), cfg, jobs, flags)
}

// exportPlan picks the job list and flag set: a manifest wins over the
// config file, which wins over the built-in defaults.
func exportPlan(cfg types.Config, manifestPath string) ([]types.ExportJob, types.ConverterFlags, error) {
	jobs := cfg.Export.Jobs
	flags := convert.ExportFlags()
	if cfg.Export.Flags != nil {
		flags = *cfg.Export.Flags
	}

	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, flags, err
		}
		jobs = m.Jobs
		if m.Flags != nil {
			flags = *m.Flags
		}
	}

	if len(jobs) == 0 {
		jobs = manifest.Defaults()
	}
	return jobs, flags, nil
}

func exportModels(ctx context.Context, w, diag io.Writer, cfg types.Config, jobs []types.ExportJob, flags types.ConverterFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintf(w, "\n%s\nTFLite Model Exporter - Ops v11 Compatibility\n%s\n", rule, rule)
	fmt.Fprintln(w, "\nINSTRUCTIONS:")
	fmt.Fprintln(w, "1. List your models in a manifest (--manifest) or under export.jobs in litecompat.yaml")
	fmt.Fprintln(w, "2. Make sure you have your .h5 or .keras model files")
	fmt.Fprintln(w, "3. Run: litecompat export --run")
	fmt.Fprintln(w, "\nTIP: If still getting v12 errors:")
	fmt.Fprintf(w, "   pip install tensorflow==%s (or set converter.backend: container)\n", convert.LastV11Release)
	fmt.Fprintln(w, "   Then re-run this command")
	fmt.Fprintln(w)

	if err := convert.CheckInputs(jobs, w); err != nil {
		return err
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
		Verifier:  inspect.New(cfg.Inspect.MaxVersions),
		Recorder:  recorder,
		Logger:    logger.L(),
	}
	convert.PrintVersion(w, conv.Name(), exporter.ConverterVersion())

	result := exporter.ExportBatch(ctx, jobs, w)
	if result.HasFailures() {
		return fmt.Errorf("%d of %d conversions failed", result.Failed, result.Total())
	}
	return nil
}

// printExportStatus lists the .tflite files in modelDir with their size and
// FULLY_CONNECTED versions, then the known ways out of v12.
func printExportStatus(w io.Writer, modelDir string) {
	if files, err := filepath.Glob(filepath.Join(modelDir, "*.tflite")); err == nil && dirExists(modelDir) {
		sort.Strings(files)
		fmt.Fprintf(w, "\nFound %d .tflite files in %s/:\n", len(files), modelDir)

		insp := inspect.New(nil)
		for _, f := range files {
			line := fmt.Sprintf("  - %s", filepath.Base(f))
			if info, err := os.Stat(f); err == nil {
				line += fmt.Sprintf(" (%.2f KB)", float64(info.Size())/1024)
			}
			if report, err := insp.Inspect(f); err == nil {
				line += fcSummary(report)
			}
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintf(w, "\n%s\nCURRENT STATUS\n%s\n", rule, rule)
	fmt.Fprintln(w, "TensorFlow 2.16+ exports FULLY_CONNECTED v12")
	fmt.Fprintln(w, "Older TFLite runtimes require v11 or earlier")
	fmt.Fprintln(w, "\nFIX OPTIONS:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTION 1: Convert with TensorFlow 2.15 (RECOMMENDED)")
	fmt.Fprintf(w, "  pip install tensorflow==%s\n", convert.LastV11Release)
	fmt.Fprintf(w, "  or set converter.backend: container (image %s)\n", convert.DefaultImage)
	fmt.Fprintln(w, "  litecompat export --run")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTION 2: Update the app's TFLite runtime")
	fmt.Fprintln(w, "  (Requires plugin source modification - complex)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTION 3: Use TensorFlow Lite Model Maker")
	fmt.Fprintln(w, "  pip install tflite-model-maker")
	fmt.Fprintln(w, "  (Automatically handles compatibility)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\nUpdate the export list, then run: litecompat export --run")
}

// fcSummary renders the distinct FULLY_CONNECTED versions of a report.
func fcSummary(r *types.InspectionReport) string {
	seen := map[int32]bool{}
	var versions []int32
	for _, op := range r.FullyConnected() {
		if !seen[op.Version] {
			seen[op.Version] = true
			versions = append(versions, op.Version)
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	s := " FULLY_CONNECTED"
	for _, v := range versions {
		s += fmt.Sprintf(" v%d", v)
	}
	return s
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
