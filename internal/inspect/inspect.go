// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inspect reports which operators, and which operator versions, a
// converted .tflite model requires. It reads the flatbuffer directly, so it
// works without a TensorFlow installation.
package inspect

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/litecompat/internal/tflite"
	"github.com/pdiddy/litecompat/pkg/types"
)

const (
	// legacyFCVersion is the newest FULLY_CONNECTED version older mobile
	// runtimes accept.
	legacyFCVersion = 11
	// currentFCVersion is what TensorFlow 2.16+ emits.
	currentFCVersion = 12
)

// Inspector builds InspectionReports. MaxVersions, when non-empty, adds a
// compatibility verdict per operator it names.
type Inspector struct {
	MaxVersions map[string]int32
}

// New returns an Inspector checking against maxVersions (may be nil).
// Operator names are matched case-insensitively.
func New(maxVersions map[string]int32) *Inspector {
	limits := make(map[string]int32, len(maxVersions))
	for name, v := range maxVersions {
		limits[strings.ToUpper(name)] = v
	}
	return &Inspector{MaxVersions: limits}
}

// Inspect decodes the model at path and validates its tensor references.
// Every failure wraps types.ErrInspect.
func (in *Inspector) Inspect(path string) (*types.InspectionReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInspect, err)
	}

	m, err := tflite.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInspect, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrInspect, path, err)
	}

	report := &types.InspectionReport{
		Path:          path,
		Size:          info.Size(),
		SchemaVersion: m.Version,
		Description:   m.Description,
		Subgraphs:     len(m.Subgraphs),
		OpCounts:      make(map[string]int),
	}

	for si, sg := range m.Subgraphs {
		for oi, op := range sg.Operators {
			oc := m.OpCode(op)
			report.Ops = append(report.Ops, types.OpDetail{
				Subgraph:    si,
				Index:       oi,
				Name:        oc.Name(),
				BuiltinCode: oc.Builtin,
				CustomCode:  oc.CustomCode,
				Version:     oc.Version,
			})
			report.OpCounts[opKey(oc.Name(), oc.Version)]++
		}
	}

	primary := m.Subgraphs[0]
	report.Inputs = tensorInfos(primary, primary.Inputs)
	report.Outputs = tensorInfos(primary, primary.Outputs)
	report.Verdicts = in.verdicts(report.Ops)

	return report, nil
}

func (in *Inspector) verdicts(ops []types.OpDetail) []types.Verdict {
	if len(in.MaxVersions) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []types.Verdict
	for _, op := range ops {
		limit, ok := in.MaxVersions[op.Name]
		if !ok {
			continue
		}
		key := opKey(op.Name, op.Version)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, types.Verdict{
			Op:         op.Name,
			Version:    op.Version,
			MaxVersion: limit,
			Compatible: op.Version <= limit,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].Version < out[j].Version
	})
	return out
}

func tensorInfos(sg tflite.Subgraph, idx []int32) []types.TensorInfo {
	out := make([]types.TensorInfo, 0, len(idx))
	for _, i := range idx {
		if i < 0 {
			continue
		}
		t := sg.Tensors[i]
		out = append(out, types.TensorInfo{
			Name:  t.Name,
			Shape: t.Shape,
			Type:  tflite.TensorTypeName(t.Type),
		})
	}
	return out
}

// opKey renders the NAME_vN key used for op counts.
func opKey(name string, version int32) string {
	return fmt.Sprintf("%s_v%d", name, version)
}
