// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litecompat/pkg/types"
)

// maxFCShown caps how many FULLY_CONNECTED ops Verify lists individually.
const maxFCShown = 3

// Verify inspects a freshly converted model and prints its FULLY_CONNECTED
// versions and the count of every op type. Inspection problems are printed
// as a warning and never fail the caller's conversion.
func (in *Inspector) Verify(w io.Writer, path string) *types.InspectionReport {
	fmt.Fprintln(w, "\nVerifying ops version...")
	report, err := in.Inspect(path)
	if err != nil {
		fmt.Fprintf(w, "warning: cannot inspect op versions: %v\n", err)
		return nil
	}

	PrintFullyConnected(w, report)
	PrintOpCounts(w, report)
	PrintVerdicts(w, report)
	return report
}

// Check prints every operator with its version followed by the model's
// input and output signature. It returns false when the model cannot be
// loaded at all.
func (in *Inspector) Check(w io.Writer, path string) bool {
	fmt.Fprintf(w, "\nAnalyzing model: %s\n", path)
	report, err := in.Inspect(path)
	if err != nil {
		fmt.Fprintf(w, "\nError loading model: %v\n", err)
		return false
	}

	PrintOps(w, report)
	PrintStructure(w, report)
	PrintVerdicts(w, report)
	return true
}

// PrintOps lists each operator node and its version.
func PrintOps(w io.Writer, r *types.InspectionReport) {
	fmt.Fprintln(w, "\nModel operations:")
	if len(r.Ops) == 0 {
		fmt.Fprintln(w, "  (no operators)")
		return
	}
	for _, op := range r.Ops {
		fmt.Fprintf(w, "  - %s: version %d\n", op.Name, op.Version)
	}
}

// PrintFullyConnected reports FULLY_CONNECTED versions, flagging v12 (not
// loadable by older runtimes) and v11.
func PrintFullyConnected(w io.Writer, r *types.InspectionReport) {
	fc := r.FullyConnected()
	if len(fc) == 0 {
		fmt.Fprintln(w, "No FULLY_CONNECTED ops found (model might be using other ops)")
		return
	}

	fmt.Fprintf(w, "Found %d FULLY_CONNECTED ops:\n", len(fc))
	for i, op := range fc {
		if i == maxFCShown {
			break
		}
		fmt.Fprintf(w, "  Op %d: version = %d\n", i+1, op.Version)
		switch op.Version {
		case currentFCVersion:
			fmt.Fprintf(w, "    WARNING: Still using v%d!\n", currentFCVersion)
		case legacyFCVersion:
			fmt.Fprintf(w, "    Compatible with v%d!\n", legacyFCVersion)
		}
	}
}

// PrintOpCounts prints NAME_vN: count lines sorted by key.
func PrintOpCounts(w io.Writer, r *types.InspectionReport) {
	keys := make([]string, 0, len(r.OpCounts))
	for k := range r.OpCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\nAll ops in model (%d unique):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %dx\n", k, r.OpCounts[k])
	}
}

// PrintStructure prints the first input and output tensor of the main graph.
func PrintStructure(w io.Writer, r *types.InspectionReport) {
	fmt.Fprintln(w, "\nModel structure:")
	if len(r.Inputs) > 0 {
		fmt.Fprintf(w, "  Input shape: %v\n", r.Inputs[0].Shape)
		fmt.Fprintf(w, "  Input type: %s\n", r.Inputs[0].Type)
	}
	if len(r.Outputs) > 0 {
		fmt.Fprintf(w, "  Output shape: %v\n", r.Outputs[0].Shape)
		fmt.Fprintf(w, "  Output type: %s\n", r.Outputs[0].Type)
	}
}

// PrintVerdicts prints one line per checked operator version. Nothing is
// printed without a compatibility target.
func PrintVerdicts(w io.Writer, r *types.InspectionReport) {
	if len(r.Verdicts) == 0 {
		return
	}
	fmt.Fprintln(w, "\nCompatibility:")
	for _, v := range r.Verdicts {
		mark := "ok"
		if !v.Compatible {
			mark = "INCOMPATIBLE"
		}
		fmt.Fprintf(w, "  %s v%d (max v%d): %s\n", v.Op, v.Version, v.MaxVersion, mark)
	}
}

// WriteReport writes r as json, yaml, or the human-readable text summary.
func WriteReport(w io.Writer, r *types.InspectionReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding YAML report: %w", err)
		}
		return enc.Close()
	case "", "text":
		fmt.Fprintf(w, "Model: %s (%.2f KB, schema v%d, %d subgraph(s))\n",
			r.Path, float64(r.Size)/1024, r.SchemaVersion, r.Subgraphs)
		PrintOps(w, r)
		PrintFullyConnected(w, r)
		PrintOpCounts(w, r)
		PrintStructure(w, r)
		PrintVerdicts(w, r)
		return nil
	default:
		return fmt.Errorf("unknown report format %q (want text, json, or yaml)", format)
	}
}
