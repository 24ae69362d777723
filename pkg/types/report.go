// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OpDetail describes one operator node of a converted model together with
// the operator code it references.
type OpDetail struct {
	// Subgraph is the index of the subgraph holding the operator.
	Subgraph int `json:"subgraph" yaml:"subgraph"`

	// Index is the operator's position within its subgraph.
	Index int `json:"index" yaml:"index"`

	// Name is the builtin operator name (e.g. "FULLY_CONNECTED"), or the
	// custom code for CUSTOM operators.
	Name string `json:"op_name" yaml:"op_name"`

	// BuiltinCode is the numeric builtin operator code.
	BuiltinCode int32 `json:"builtin_code" yaml:"builtin_code"`

	// CustomCode is set only for CUSTOM operators.
	CustomCode string `json:"custom_code,omitempty" yaml:"custom_code,omitempty"`

	// Version is the operator version the runtime must support.
	Version int32 `json:"version" yaml:"version"`
}

// TensorInfo summarizes a graph input or output tensor.
type TensorInfo struct {
	Name  string  `json:"name" yaml:"name"`
	Shape []int32 `json:"shape" yaml:"shape"`
	Type  string  `json:"dtype" yaml:"dtype"`
}

// Verdict compares one operator against a compatibility target.
type Verdict struct {
	Op         string `json:"op" yaml:"op"`
	Version    int32  `json:"version" yaml:"version"`
	MaxVersion int32  `json:"max_version" yaml:"max_version"`
	Compatible bool   `json:"compatible" yaml:"compatible"`
}

// InspectionReport is everything the diagnostic inspector learned about a
// converted model.
type InspectionReport struct {
	Path          string         `json:"path" yaml:"path"`
	Size          int64          `json:"size" yaml:"size"`
	SchemaVersion uint32         `json:"schema_version" yaml:"schema_version"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Subgraphs     int            `json:"subgraphs" yaml:"subgraphs"`
	Ops           []OpDetail     `json:"ops" yaml:"ops"`
	OpCounts      map[string]int `json:"op_counts" yaml:"op_counts"`
	Inputs        []TensorInfo   `json:"inputs" yaml:"inputs"`
	Outputs       []TensorInfo   `json:"outputs" yaml:"outputs"`
	Verdicts      []Verdict      `json:"verdicts,omitempty" yaml:"verdicts,omitempty"`
}

// FullyConnected returns the FULLY_CONNECTED operators in graph order.
func (r *InspectionReport) FullyConnected() []OpDetail {
	var out []OpDetail
	for _, op := range r.Ops {
		if op.Name == "FULLY_CONNECTED" {
			out = append(out, op)
		}
	}
	return out
}

// Compatible reports whether every verdict passed. A report without a
// compatibility target is always compatible.
func (r *InspectionReport) Compatible() bool {
	for _, v := range r.Verdicts {
		if !v.Compatible {
			return false
		}
	}
	return true
}
