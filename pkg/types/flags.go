// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConverterFlags is the pass-through configuration handed to the external
// converter. Pointer fields are optional: nil leaves the converter default
// untouched, and a set value is applied only when the converter exposes the
// matching attribute.
type ConverterFlags struct {
	// BuiltinsOnly restricts target_spec.supported_ops to TFLITE_BUILTINS.
	BuiltinsOnly bool `json:"builtins_only" yaml:"builtins_only" mapstructure:"builtins_only"`

	// NewQuantizer maps to experimental_new_quantizer.
	NewQuantizer *bool `json:"experimental_new_quantizer,omitempty" yaml:"experimental_new_quantizer,omitempty" mapstructure:"experimental_new_quantizer"`

	// NewConverter maps to experimental_new_converter.
	NewConverter *bool `json:"experimental_new_converter,omitempty" yaml:"experimental_new_converter,omitempty" mapstructure:"experimental_new_converter"`

	// LowerTensorListOps maps to _experimental_lower_tensor_list_ops.
	LowerTensorListOps *bool `json:"experimental_lower_tensor_list_ops,omitempty" yaml:"experimental_lower_tensor_list_ops,omitempty" mapstructure:"experimental_lower_tensor_list_ops"`

	// OptimizeDefault sets optimizations = [Optimize.DEFAULT].
	OptimizeDefault bool `json:"optimize_default" yaml:"optimize_default" mapstructure:"optimize_default"`
}

// Bool returns a pointer to b, for filling the optional flag fields.
func Bool(b bool) *bool { return &b }
