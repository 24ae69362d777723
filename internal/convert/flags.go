// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"

	"github.com/pdiddy/litecompat/pkg/types"
)

// ExportFlags is the preset used by the export command: builtin ops only,
// both experimental toggles off, default optimizations.
func ExportFlags() types.ConverterFlags {
	return types.ConverterFlags{
		BuiltinsOnly:    true,
		NewQuantizer:    types.Bool(false),
		NewConverter:    types.Bool(false),
		OptimizeDefault: true,
	}
}

// FixFlags is the preset used by the fix command. It keeps the new converter
// and turns tensor list lowering off instead.
func FixFlags() types.ConverterFlags {
	return types.ConverterFlags{
		BuiltinsOnly:       true,
		NewQuantizer:       types.Bool(false),
		LowerTensorListOps: types.Bool(false),
		OptimizeDefault:    true,
	}
}

// DescribeFlags prints one line per flag that will be requested from the
// converter. Optional attributes the converter lacks are reported by the
// converter itself.
func DescribeFlags(w io.Writer, f types.ConverterFlags) {
	fmt.Fprintln(w, "\nConverter settings:")
	optional := []struct {
		name string
		v    *bool
	}{
		{"experimental_new_quantizer", f.NewQuantizer},
		{"experimental_new_converter", f.NewConverter},
		{"_experimental_lower_tensor_list_ops", f.LowerTensorListOps},
	}
	for _, o := range optional {
		if o.v != nil {
			fmt.Fprintf(w, "  + %s = %s\n", o.name, pyBool(*o.v))
		}
	}
	if f.OptimizeDefault {
		fmt.Fprintln(w, "  + optimizations = [DEFAULT]")
	}
	if f.BuiltinsOnly {
		fmt.Fprintln(w, "  + target_spec.supported_ops = [TFLITE_BUILTINS]")
	}
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
