// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litecompat/pkg/types"
)

// HistoryExport is the document written by WriteHistory for the json and
// yaml formats.
type HistoryExport struct {
	Runs  []types.RunRecord `json:"runs" yaml:"runs"`
	Drift []DriftEntry      `json:"drift" yaml:"drift"`
}

// WriteHistory writes runs and drift as json, yaml, or a text table.
func WriteHistory(w io.Writer, runs []types.RunRecord, drift []DriftEntry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(HistoryExport{Runs: runs, Drift: drift})
	case "yaml":
		data, err := yaml.Marshal(HistoryExport{Runs: runs, Drift: drift})
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "", "text":
		writeHistoryTable(w, runs)
		writeDriftTable(w, drift)
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text, yaml or json", format)
	}
}

func writeHistoryTable(w io.Writer, runs []types.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-40s  %-9s  %-10s  %-12s  %-10s  %s\n",
		"ID", "When", "Input", "Status", "Size (KB)", "TF", "FC", "Backend")
	fmt.Fprintln(w, strings.Repeat("-", 127))
	for _, r := range runs {
		input := r.Input
		if len(input) > 40 {
			input = "..." + input[len(input)-37:]
		}
		fmt.Fprintf(w, "%-4d  %-20s  %-40s  %-9s  %-10.2f  %-12s  %-10s  %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), input, r.Status,
			float64(r.Size)/1024, r.ConverterVersion, fcColumn(r.FCVersions), r.Backend)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

// fcColumn renders the distinct FULLY_CONNECTED versions, e.g. "v11" or
// "v11,v12"; "-" when the model was not verified.
func fcColumn(versions []int32) string {
	if versions == nil {
		return "-"
	}
	if len(versions) == 0 {
		return "none"
	}
	seen := make(map[int32]bool)
	var parts []string
	for _, v := range versions {
		if !seen[v] {
			seen[v] = true
			parts = append(parts, fmt.Sprintf("v%d", v))
		}
	}
	return strings.Join(parts, ",")
}

func writeDriftTable(w io.Writer, drift []DriftEntry) {
	if len(drift) == 0 {
		return
	}

	fmt.Fprintln(w, "\nByte-length reproducibility:")
	for _, d := range drift {
		mark := "stable"
		if d.Drifted() {
			mark = "DRIFT"
		}
		fmt.Fprintf(w, "  %s (TF %s, %d runs): %s %v\n", d.Input, d.ConverterVersion, d.Runs, mark, d.Sizes)
	}
}
