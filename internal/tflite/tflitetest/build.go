// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tflitetest builds small .tflite flatbuffers for tests.
package tflitetest

import (
	"os"
	"path/filepath"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
)

// OpCode describes one operator code table entry.
type OpCode struct {
	Builtin int32
	Custom  string
	Version int32

	// LegacyOnly writes only deprecated_builtin_code, the way converters
	// before the int32 field existed did.
	LegacyOnly bool
}

// Tensor describes one tensor of the main subgraph.
type Tensor struct {
	Name   string
	Shape  []int32
	Type   int8
	Buffer uint32
}

// Op describes one operator of the main subgraph.
type Op struct {
	Opcode  uint32
	Inputs  []int32
	Outputs []int32
}

// Spec is a single-subgraph model.
type Spec struct {
	Description string
	OpCodes     []OpCode
	Tensors     []Tensor
	Inputs      []int32
	Outputs     []int32
	Ops         []Op
	Buffers     int
}

// Dense returns a model with one FULLY_CONNECTED op at the given version
// followed by a SOFTMAX, mirroring a small Keras classifier.
func Dense(fcVersion int32) Spec {
	return Spec{
		Description: "MLIR Converted.",
		OpCodes: []OpCode{
			{Builtin: 9, Version: fcVersion},
			{Builtin: 25, Version: 1},
		},
		Tensors: []Tensor{
			{Name: "serving_default_input:0", Shape: []int32{1, 64}, Type: 0},
			{Name: "dense/MatMul", Shape: []int32{8, 64}, Type: 0, Buffer: 1},
			{Name: "dense/BiasAdd", Shape: []int32{1, 8}, Type: 0},
			{Name: "StatefulPartitionedCall:0", Shape: []int32{1, 8}, Type: 0},
		},
		Inputs:  []int32{0},
		Outputs: []int32{3},
		Ops: []Op{
			{Opcode: 0, Inputs: []int32{0, 1, -1}, Outputs: []int32{2}},
			{Opcode: 1, Inputs: []int32{2}, Outputs: []int32{3}},
		},
		Buffers: 2,
	}
}

// Build serializes s as a TFL3 flatbuffer.
func Build(s Spec) []byte {
	b := flatbuffers.NewBuilder(1024)

	codes := make([]flatbuffers.UOffsetT, len(s.OpCodes))
	for i, oc := range s.OpCodes {
		var custom flatbuffers.UOffsetT
		if oc.Custom != "" {
			custom = b.CreateString(oc.Custom)
		}
		dep := oc.Builtin
		if dep > 127 {
			dep = 127
		}
		b.StartObject(4)
		b.PrependInt8Slot(0, int8(dep), 0)
		if custom != 0 {
			b.PrependUOffsetTSlot(1, custom, 0)
		}
		b.PrependInt32Slot(2, oc.Version, 1)
		if !oc.LegacyOnly {
			b.PrependInt32Slot(3, oc.Builtin, 0)
		}
		codes[i] = b.EndObject()
	}
	codesVec := offsetVector(b, codes)

	tensors := make([]flatbuffers.UOffsetT, len(s.Tensors))
	for i, t := range s.Tensors {
		shape := int32Vector(b, t.Shape)
		name := b.CreateString(t.Name)
		b.StartObject(4)
		b.PrependUOffsetTSlot(0, shape, 0)
		b.PrependInt8Slot(1, t.Type, 0)
		b.PrependUint32Slot(2, t.Buffer, 0)
		b.PrependUOffsetTSlot(3, name, 0)
		tensors[i] = b.EndObject()
	}
	tensorsVec := offsetVector(b, tensors)

	ops := make([]flatbuffers.UOffsetT, len(s.Ops))
	for i, op := range s.Ops {
		in := int32Vector(b, op.Inputs)
		out := int32Vector(b, op.Outputs)
		b.StartObject(3)
		b.PrependUint32Slot(0, op.Opcode, 0)
		b.PrependUOffsetTSlot(1, in, 0)
		b.PrependUOffsetTSlot(2, out, 0)
		ops[i] = b.EndObject()
	}
	opsVec := offsetVector(b, ops)

	inputs := int32Vector(b, s.Inputs)
	outputs := int32Vector(b, s.Outputs)
	sgName := b.CreateString("main")
	b.StartObject(5)
	b.PrependUOffsetTSlot(0, tensorsVec, 0)
	b.PrependUOffsetTSlot(1, inputs, 0)
	b.PrependUOffsetTSlot(2, outputs, 0)
	b.PrependUOffsetTSlot(3, opsVec, 0)
	b.PrependUOffsetTSlot(4, sgName, 0)
	subgraph := b.EndObject()
	subgraphsVec := offsetVector(b, []flatbuffers.UOffsetT{subgraph})

	buffers := make([]flatbuffers.UOffsetT, s.Buffers)
	for i := range buffers {
		b.StartObject(1)
		buffers[i] = b.EndObject()
	}
	buffersVec := offsetVector(b, buffers)

	var desc flatbuffers.UOffsetT
	if s.Description != "" {
		desc = b.CreateString(s.Description)
	}

	b.StartObject(5)
	b.PrependUint32Slot(0, 3, 0)
	b.PrependUOffsetTSlot(1, codesVec, 0)
	b.PrependUOffsetTSlot(2, subgraphsVec, 0)
	if desc != 0 {
		b.PrependUOffsetTSlot(3, desc, 0)
	}
	b.PrependUOffsetTSlot(4, buffersVec, 0)
	root := b.EndObject()
	b.FinishWithFileIdentifier(root, []byte("TFL3"))
	return b.FinishedBytes()
}

// WriteFile builds s into dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, s Spec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(s), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func int32Vector(b *flatbuffers.Builder, v []int32) flatbuffers.UOffsetT {
	b.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependInt32(v[i])
	}
	return b.EndVector(len(v))
}

func offsetVector(b *flatbuffers.Builder, offs []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(4, len(offs), 4)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	return b.EndVector(len(offs))
}
