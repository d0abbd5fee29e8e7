package planning

import (
	"testing"
	"unsafe"

	"github.com/tensorarena/arena/arena"
	"github.com/tensorarena/arena/model"
	"github.com/tensorarena/arena/model/modeltest"
)

func newScratchArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, _, err := arena.New(make([]byte, 4096))
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	return a
}

// linearChain builds tensor0 -(op0)-> tensor1 -(op1)-> tensor2, with tensor0
// as the sole subgraph input and tensor2 as the sole subgraph output.
func linearChain() (modeltest.Subgraph, []model.EvalTensor) {
	sg := modeltest.Subgraph{
		Tensors: []modeltest.Tensor{
			{ElemType: model.Float32, Dims: []int32{4}},
			{ElemType: model.Float32, Dims: []int32{4}},
			{ElemType: model.Float32, Dims: []int32{4}},
		},
		Operators: []modeltest.Operator{
			{In: []int32{0}, Out: []int32{1}},
			{In: []int32{1}, Out: []int32{2}},
		},
		In:  []int32{0},
		Out: []int32{2},
	}
	evalTensors := make([]model.EvalTensor, 3)
	for i := range evalTensors {
		evalTensors[i] = model.EvalTensor{Type: model.Float32, Shape: model.Shape{Dims: []int32{4}}}
	}
	return sg, evalTensors
}

func TestAddTensorsLifetimesOnLinearChain(t *testing.T) {
	sg, evalTensors := linearChain()

	b, err := NewBuilder(newScratchArena(t), len(sg.Tensors), 0)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.AddTensors(sg, nil, evalTensors); err != nil {
		t.Fatalf("AddTensors: %v", err)
	}

	recs := b.TensorRecords()

	if recs[0].FirstUseStep != 0 || recs[0].LastUseStep != 0 {
		t.Fatalf("tensor 0 (subgraph input): got [%d,%d], want [0,0]", recs[0].FirstUseStep, recs[0].LastUseStep)
	}
	if recs[1].FirstUseStep != 0 || recs[1].LastUseStep != 1 {
		t.Fatalf("tensor 1: got [%d,%d], want [0,1]", recs[1].FirstUseStep, recs[1].LastUseStep)
	}
	if recs[2].FirstUseStep != 1 || recs[2].LastUseStep != 1 {
		t.Fatalf("tensor 2 (subgraph output): got [%d,%d], want [1,1]", recs[2].FirstUseStep, recs[2].LastUseStep)
	}
	for i, rec := range recs {
		if !rec.NeedsAllocating {
			t.Fatalf("tensor %d: expected NeedsAllocating", i)
		}
		if rec.Bytes != 16 {
			t.Fatalf("tensor %d: Bytes = %d, want 16", i, rec.Bytes)
		}
	}
}

func TestAddTensorsSkipsConstantsAndVariables(t *testing.T) {
	sg, evalTensors := linearChain()
	one := byte(1)
	evalTensors[1].Data = unsafe.Pointer(&one) // constant-looking data pointer
	evalTensors[2].IsVariable = true

	b, err := NewBuilder(newScratchArena(t), len(sg.Tensors), 0)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.AddTensors(sg, nil, evalTensors); err != nil {
		t.Fatalf("AddTensors: %v", err)
	}

	recs := b.TensorRecords()
	if recs[1].NeedsAllocating {
		t.Fatalf("tensor with a populated Data pointer must not need allocating")
	}
	if recs[2].NeedsAllocating {
		t.Fatalf("variable tensor must not need allocating")
	}
}

func TestAddTensorsInheritsFirstUseFromSubgraphInputConsumer(t *testing.T) {
	// op0 consumes subgraph input 0 and also tensor 1, which is otherwise
	// never produced by any operator (e.g. supplied out of band). Tensor 1
	// should inherit first_use_step = 0 from op0 (spec.md §9 corner case).
	sg := modeltest.Subgraph{
		Tensors: []modeltest.Tensor{
			{ElemType: model.Float32, Dims: []int32{4}},
			{ElemType: model.Float32, Dims: []int32{4}},
			{ElemType: model.Float32, Dims: []int32{4}},
		},
		Operators: []modeltest.Operator{
			{In: []int32{0, 1}, Out: []int32{2}},
		},
		In:  []int32{0},
		Out: []int32{2},
	}
	evalTensors := []model.EvalTensor{
		{Type: model.Float32, Shape: model.Shape{Dims: []int32{4}}},
		{Type: model.Float32, Shape: model.Shape{Dims: []int32{4}}},
		{Type: model.Float32, Shape: model.Shape{Dims: []int32{4}}},
	}

	b, err := NewBuilder(newScratchArena(t), len(sg.Tensors), 0)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.AddTensors(sg, nil, evalTensors); err != nil {
		t.Fatalf("AddTensors: %v", err)
	}

	recs := b.TensorRecords()
	if recs[1].FirstUseStep != 0 {
		t.Fatalf("tensor 1 should inherit first_use_step=0, got %d", recs[1].FirstUseStep)
	}
	if recs[1].LastUseStep != 0 {
		t.Fatalf("tensor 1 last_use_step = %d, want 0", recs[1].LastUseStep)
	}
}

func TestOfflinePlannedOffsetsRoundTrip(t *testing.T) {
	schema := modeltest.Schema{
		Meta: map[string][]byte{
			model.OfflineAllocationMetadataName: encodeTable(1, 0, []int32{0, 64, -1}),
		},
	}
	offsets, err := OfflinePlannedOffsets(newScratchArena(t), schema, 0, 3)
	if err != nil {
		t.Fatalf("OfflinePlannedOffsets: %v", err)
	}
	want := []int32{0, 64, -1}
	for i, w := range want {
		if offsets[i] != w {
			t.Fatalf("offsets[%d] = %d, want %d", i, offsets[i], w)
		}
	}
}

func TestOfflinePlannedOffsetsMissingMetadataReturnsNil(t *testing.T) {
	schema := modeltest.Schema{}
	offsets, err := OfflinePlannedOffsets(newScratchArena(t), schema, 0, 3)
	if err != nil {
		t.Fatalf("OfflinePlannedOffsets: %v", err)
	}
	if offsets != nil {
		t.Fatalf("expected nil offsets when no metadata entry is present")
	}
}

func TestOfflinePlannedOffsetsRejectsCountMismatch(t *testing.T) {
	schema := modeltest.Schema{
		Meta: map[string][]byte{
			model.OfflineAllocationMetadataName: encodeTable(1, 0, []int32{0, 64}),
		},
	}
	if _, err := OfflinePlannedOffsets(newScratchArena(t), schema, 0, 3); err == nil {
		t.Fatalf("expected error for tensor-count mismatch")
	}
}

func TestOfflinePlannedOffsetsRejectsSubgraphMismatch(t *testing.T) {
	schema := modeltest.Schema{
		Meta: map[string][]byte{
			model.OfflineAllocationMetadataName: encodeTable(1, 1, []int32{0}),
		},
	}
	if _, err := OfflinePlannedOffsets(newScratchArena(t), schema, 0, 1); err == nil {
		t.Fatalf("expected error for subgraph index mismatch")
	}
}

func TestAddScratchBuffersPopulatesSuffix(t *testing.T) {
	b, err := NewBuilder(newScratchArena(t), 2, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	handles := []model.ScratchBufferHandle{
		{Bytes: 128, OwningOperatorIndex: 0},
		{Bytes: 256, OwningOperatorIndex: 3},
	}
	if err := b.AddScratchBuffers(handles); err != nil {
		t.Fatalf("AddScratchBuffers: %v", err)
	}

	recs := b.ScratchRecords()
	if recs[0].Bytes != 128 || recs[0].FirstUseStep != 0 || recs[0].LastUseStep != 0 {
		t.Fatalf("scratch 0 mismatch: %+v", recs[0])
	}
	if recs[1].Bytes != 256 || recs[1].FirstUseStep != 3 || recs[1].LastUseStep != 3 {
		t.Fatalf("scratch 1 mismatch: %+v", recs[1])
	}
	if recs[0].Kind != KindScratch || recs[0].OutSlot.Kind != SlotScratch {
		t.Fatalf("scratch 0 kind/slot mismatch: %+v", recs[0])
	}
}

func TestAddScratchBuffersRejectsCountMismatch(t *testing.T) {
	b, err := NewBuilder(newScratchArena(t), 0, 1)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.AddScratchBuffers(nil); err == nil {
		t.Fatalf("expected error for handle-count mismatch")
	}
}

func encodeTable(version, subgraph int32, offsets []int32) []byte {
	buf := make([]byte, 12+len(offsets)*4)
	putLE := func(off int, v int32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putLE(0, version)
	putLE(4, subgraph)
	putLE(8, int32(len(offsets)))
	for i, o := range offsets {
		putLE(12+i*4, o)
	}
	return buf
}
