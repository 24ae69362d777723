// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tflite

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
)

// Table accessors for the subset of schema.fbs the inspector reads. Field
// vtable offsets are 4 + 2*field_id.

type fbModel struct{ tab flatbuffers.Table }

func rootModel(buf []byte) *fbModel {
	n := flatbuffers.GetUOffsetT(buf)
	m := &fbModel{}
	m.tab.Bytes = buf
	m.tab.Pos = n
	return m
}

func (m *fbModel) version() uint32 {
	if o := flatbuffers.UOffsetT(m.tab.Offset(4)); o != 0 {
		return m.tab.GetUint32(o + m.tab.Pos)
	}
	return 0
}

func (m *fbModel) operatorCodesLen() int { return vectorLen(&m.tab, 6) }

func (m *fbModel) operatorCode(j int) *fbOperatorCode {
	oc := &fbOperatorCode{}
	oc.tab = tableAt(&m.tab, 6, j)
	return oc
}

func (m *fbModel) subgraphsLen() int { return vectorLen(&m.tab, 8) }

func (m *fbModel) subgraph(j int) *fbSubGraph {
	sg := &fbSubGraph{}
	sg.tab = tableAt(&m.tab, 8, j)
	return sg
}

func (m *fbModel) description() string { return stringField(&m.tab, 10) }

func (m *fbModel) buffersLen() int { return vectorLen(&m.tab, 12) }

type fbOperatorCode struct{ tab flatbuffers.Table }

func (oc *fbOperatorCode) deprecatedBuiltinCode() int8 {
	if o := flatbuffers.UOffsetT(oc.tab.Offset(4)); o != 0 {
		return oc.tab.GetInt8(o + oc.tab.Pos)
	}
	return 0
}

func (oc *fbOperatorCode) customCode() string { return stringField(&oc.tab, 6) }

func (oc *fbOperatorCode) version() int32 {
	if o := flatbuffers.UOffsetT(oc.tab.Offset(8)); o != 0 {
		return oc.tab.GetInt32(o + oc.tab.Pos)
	}
	return 1
}

func (oc *fbOperatorCode) builtinCode() int32 {
	if o := flatbuffers.UOffsetT(oc.tab.Offset(10)); o != 0 {
		return oc.tab.GetInt32(o + oc.tab.Pos)
	}
	return 0
}

type fbSubGraph struct{ tab flatbuffers.Table }

func (sg *fbSubGraph) tensorsLen() int { return vectorLen(&sg.tab, 4) }

func (sg *fbSubGraph) tensor(j int) *fbTensor {
	t := &fbTensor{}
	t.tab = tableAt(&sg.tab, 4, j)
	return t
}

func (sg *fbSubGraph) inputs() []int32  { return int32Vector(&sg.tab, 6) }
func (sg *fbSubGraph) outputs() []int32 { return int32Vector(&sg.tab, 8) }

func (sg *fbSubGraph) operatorsLen() int { return vectorLen(&sg.tab, 10) }

func (sg *fbSubGraph) operator(j int) *fbOperator {
	op := &fbOperator{}
	op.tab = tableAt(&sg.tab, 10, j)
	return op
}

func (sg *fbSubGraph) name() string { return stringField(&sg.tab, 12) }

type fbTensor struct{ tab flatbuffers.Table }

func (t *fbTensor) shape() []int32 { return int32Vector(&t.tab, 4) }

func (t *fbTensor) tensorType() int8 {
	if o := flatbuffers.UOffsetT(t.tab.Offset(6)); o != 0 {
		return t.tab.GetInt8(o + t.tab.Pos)
	}
	return 0
}

func (t *fbTensor) buffer() uint32 {
	if o := flatbuffers.UOffsetT(t.tab.Offset(8)); o != 0 {
		return t.tab.GetUint32(o + t.tab.Pos)
	}
	return 0
}

func (t *fbTensor) name() string { return stringField(&t.tab, 10) }

type fbOperator struct{ tab flatbuffers.Table }

func (op *fbOperator) opcodeIndex() uint32 {
	if o := flatbuffers.UOffsetT(op.tab.Offset(4)); o != 0 {
		return op.tab.GetUint32(o + op.tab.Pos)
	}
	return 0
}

func (op *fbOperator) inputs() []int32  { return int32Vector(&op.tab, 6) }
func (op *fbOperator) outputs() []int32 { return int32Vector(&op.tab, 8) }

func vectorLen(tab *flatbuffers.Table, field flatbuffers.VOffsetT) int {
	if o := flatbuffers.UOffsetT(tab.Offset(field)); o != 0 {
		return boundedLen(tab, o)
	}
	return 0
}

// boundedLen returns the length of the vector at o, panicking when its
// 4-byte elements would run past the end of the buffer. Every vector the
// decoder reads holds offsets or int32s, so a corrupt length is caught
// before anything is allocated for it.
func boundedLen(tab *flatbuffers.Table, o flatbuffers.UOffsetT) int {
	n := tab.VectorLen(o)
	start := uint64(tab.Vector(o))
	if n < 0 || start+uint64(n)*4 > uint64(len(tab.Bytes)) {
		panic(fmt.Sprintf("vector of %d elements at offset %d overruns %d-byte buffer", n, start, len(tab.Bytes)))
	}
	return n
}

func tableAt(tab *flatbuffers.Table, field flatbuffers.VOffsetT, j int) flatbuffers.Table {
	o := flatbuffers.UOffsetT(tab.Offset(field))
	x := tab.Vector(o)
	x += flatbuffers.UOffsetT(j) * 4
	x = tab.Indirect(x)
	return flatbuffers.Table{Bytes: tab.Bytes, Pos: x}
}

func int32Vector(tab *flatbuffers.Table, field flatbuffers.VOffsetT) []int32 {
	o := flatbuffers.UOffsetT(tab.Offset(field))
	if o == 0 {
		return nil
	}
	n := boundedLen(tab, o)
	a := tab.Vector(o)
	out := make([]int32, n)
	for j := 0; j < n; j++ {
		out[j] = tab.GetInt32(a + flatbuffers.UOffsetT(j*4))
	}
	return out
}

func stringField(tab *flatbuffers.Table, field flatbuffers.VOffsetT) string {
	if o := flatbuffers.UOffsetT(tab.Offset(field)); o != 0 {
		return string(tab.ByteVector(o + tab.Pos))
	}
	return ""
}
