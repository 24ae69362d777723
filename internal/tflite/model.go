// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tflite decodes the parts of a TensorFlow Lite flatbuffer that
// describe which operators a model needs: the operator code table with its
// versions, and the subgraphs referencing it. It never executes a model.
package tflite

import (
	"errors"
	"fmt"
	"os"
)

// FileIdentifier is the flatbuffer file identifier of schema.fbs models.
const FileIdentifier = "TFL3"

// ErrNotTFLite is returned when a buffer does not carry the TFL3 identifier.
var ErrNotTFLite = errors.New("not a TFLite flatbuffer")

// OperatorCode is one entry of the model's operator code table.
type OperatorCode struct {
	// Builtin is the resolved builtin code: the larger of the deprecated
	// int8 field and the int32 field, as the runtime resolves it.
	Builtin    int32
	CustomCode string
	Version    int32
}

// Name returns the operator name, using the custom code for CUSTOM ops.
func (oc OperatorCode) Name() string {
	if oc.Builtin == OpCustom && oc.CustomCode != "" {
		return oc.CustomCode
	}
	return BuiltinName(oc.Builtin)
}

// Tensor is a subgraph tensor.
type Tensor struct {
	Name   string
	Shape  []int32
	Type   int8
	Buffer uint32
}

// Operator is one node of a subgraph.
type Operator struct {
	OpcodeIndex uint32
	Inputs      []int32
	Outputs     []int32
}

// Subgraph is one graph of the model. Subgraph 0 is the main graph.
type Subgraph struct {
	Name      string
	Tensors   []Tensor
	Inputs    []int32
	Outputs   []int32
	Operators []Operator
}

// Model is the decoded operator-level view of a .tflite file.
type Model struct {
	Version       uint32
	Description   string
	OperatorCodes []OperatorCode
	Subgraphs     []Subgraph
	Buffers       int
}

// ReadFile reads and decodes the model at path.
func ReadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}

// Decode parses buf. Malformed offsets make the flatbuffers runtime panic,
// and vector lengths that overrun buf panic before any allocation; Decode
// turns both into an error.
func Decode(buf []byte) (m *Model, err error) {
	if len(buf) < 8 || string(buf[4:8]) != FileIdentifier {
		return nil, ErrNotTFLite
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("malformed flatbuffer: %v", r)
		}
	}()

	fb := rootModel(buf)
	m = &Model{
		Version:     fb.version(),
		Description: fb.description(),
		Buffers:     fb.buffersLen(),
	}

	n := fb.operatorCodesLen()
	m.OperatorCodes = make([]OperatorCode, n)
	for i := 0; i < n; i++ {
		oc := fb.operatorCode(i)
		builtin := oc.builtinCode()
		if dep := int32(oc.deprecatedBuiltinCode()); dep > builtin {
			builtin = dep
		}
		m.OperatorCodes[i] = OperatorCode{
			Builtin:    builtin,
			CustomCode: oc.customCode(),
			Version:    oc.version(),
		}
	}

	n = fb.subgraphsLen()
	m.Subgraphs = make([]Subgraph, n)
	for i := 0; i < n; i++ {
		m.Subgraphs[i] = decodeSubgraph(fb.subgraph(i))
	}

	return m, nil
}

func decodeSubgraph(sg *fbSubGraph) Subgraph {
	out := Subgraph{
		Name:    sg.name(),
		Inputs:  sg.inputs(),
		Outputs: sg.outputs(),
	}

	nt := sg.tensorsLen()
	out.Tensors = make([]Tensor, nt)
	for i := 0; i < nt; i++ {
		t := sg.tensor(i)
		out.Tensors[i] = Tensor{
			Name:   t.name(),
			Shape:  t.shape(),
			Type:   t.tensorType(),
			Buffer: t.buffer(),
		}
	}

	no := sg.operatorsLen()
	out.Operators = make([]Operator, no)
	for i := 0; i < no; i++ {
		op := sg.operator(i)
		out.Operators[i] = Operator{
			OpcodeIndex: op.opcodeIndex(),
			Inputs:      op.inputs(),
			Outputs:     op.outputs(),
		}
	}
	return out
}

// Validate checks every cross reference the runtime follows when it
// allocates tensors: operator code indices, tensor indices (-1 marks an
// omitted optional input) and buffer indices.
func (m *Model) Validate() error {
	if len(m.Subgraphs) == 0 {
		return errors.New("model has no subgraphs")
	}
	for si, sg := range m.Subgraphs {
		checkTensor := func(what string, idx int32) error {
			if idx == -1 {
				return nil
			}
			if idx < 0 || int(idx) >= len(sg.Tensors) {
				return fmt.Errorf("subgraph %d: %s references tensor %d of %d", si, what, idx, len(sg.Tensors))
			}
			return nil
		}

		for ti, t := range sg.Tensors {
			if m.Buffers > 0 && int(t.Buffer) >= m.Buffers {
				return fmt.Errorf("subgraph %d: tensor %d references buffer %d of %d", si, ti, t.Buffer, m.Buffers)
			}
		}
		for _, idx := range sg.Inputs {
			if err := checkTensor("input", idx); err != nil {
				return err
			}
		}
		for _, idx := range sg.Outputs {
			if err := checkTensor("output", idx); err != nil {
				return err
			}
		}
		for oi, op := range sg.Operators {
			if int(op.OpcodeIndex) >= len(m.OperatorCodes) {
				return fmt.Errorf("subgraph %d: operator %d references opcode %d of %d", si, oi, op.OpcodeIndex, len(m.OperatorCodes))
			}
			for _, idx := range op.Inputs {
				if err := checkTensor(fmt.Sprintf("operator %d input", oi), idx); err != nil {
					return err
				}
			}
			for _, idx := range op.Outputs {
				if err := checkTensor(fmt.Sprintf("operator %d output", oi), idx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// OpCode returns the operator code referenced by op.
func (m *Model) OpCode(op Operator) OperatorCode {
	return m.OperatorCodes[op.OpcodeIndex]
}
