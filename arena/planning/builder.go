package planning

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	"github.com/tensorarena/arena/arena"
	"github.com/tensorarena/arena/model"
)

// Builder walks a graph once to produce a dense array of AllocationInfo
// records: every activation tensor followed by every scratch buffer
// request (spec.md §4.2).
type Builder struct {
	records      []AllocationInfo
	tensorCount  int
	scratchCount int
}

// NewBuilder reserves tensorCount+scratchCount contiguous records from a's
// tail (spec.md §4.2 step 1, "init").
func NewBuilder(a *arena.Arena, tensorCount, scratchCount int) (*Builder, error) {
	b := &Builder{tensorCount: tensorCount, scratchCount: scratchCount}

	n := tensorCount + scratchCount
	if n == 0 {
		return b, nil
	}

	size := n * int(unsafe.Sizeof(AllocationInfo{}))
	ptr, err := a.AllocateFromTail(size, 8)
	if err != nil {
		return nil, errors.Wrap(err, "planning: reserving allocation-info records")
	}

	b.records = unsafe.Slice((*AllocationInfo)(ptr), n)
	for i := range b.records {
		b.records[i] = AllocationInfo{
			FirstUseStep:  NoStep,
			LastUseStep:   NoStep,
			OfflineOffset: Online,
		}
	}
	return b, nil
}

// Records returns every record built so far: tensors first, then scratch
// buffers.
func (b *Builder) Records() []AllocationInfo { return b.records }

// TensorRecords returns the tensor-indexed prefix of Records.
func (b *Builder) TensorRecords() []AllocationInfo { return b.records[:b.tensorCount] }

// ScratchRecords returns the scratch-indexed suffix of Records.
func (b *Builder) ScratchRecords() []AllocationInfo { return b.records[b.tensorCount:] }

// OfflinePlannedOffsets scans schema for an "OfflineMemoryAllocation"
// metadata entry and validates it against subgraphIndex and tensorCount
// (spec.md §4.2 step 2, §6). It returns (nil, nil) if no such entry exists.
func OfflinePlannedOffsets(a *arena.Arena, schema model.Schema, subgraphIndex, tensorCount int) ([]int32, error) {
	raw, ok := schema.Metadata(model.OfflineAllocationMetadataName)
	if !ok {
		return nil, nil
	}

	table, err := model.ParseOfflineAllocationTable(a, raw)
	if err != nil {
		return nil, errors.Wrapf(ErrOfflinePlanInvalid, "%v", err)
	}
	if table.Version != 1 {
		return nil, errors.Wrapf(ErrOfflinePlanInvalid, "format version %d, want 1", table.Version)
	}
	if int(table.SubgraphIndex) != subgraphIndex {
		return nil, errors.Wrapf(ErrOfflinePlanInvalid, "subgraph index %d, want %d", table.SubgraphIndex, subgraphIndex)
	}
	if len(table.Offsets) != tensorCount {
		return nil, errors.Wrapf(ErrOfflinePlanInvalid, "offset count %d, want tensor count %d", len(table.Offsets), tensorCount)
	}
	return table.Offsets, nil
}

// AddTensors fills the tensor-indexed prefix of Records from subgraph,
// applying offlineOffsets (which may be nil, meaning "plan everything
// online") and the corresponding eval tensors' already-resolved data
// pointers (spec.md §4.2 step 3).
func (b *Builder) AddTensors(subgraph model.SubgraphView, offlineOffsets []int32, evalTensors []model.EvalTensor) error {
	for i := 0; i < b.tensorCount; i++ {
		size, err := evalTensors[i].ByteSize()
		if err != nil {
			return errors.Wrapf(err, "tensor %d", i)
		}

		rec := &b.records[i]
		rec.Bytes = size
		rec.Kind = KindActivation
		rec.OutSlot = Slot{Kind: SlotTensor, Index: i}
		rec.NeedsAllocating = evalTensors[i].Data == nil && !evalTensors[i].IsVariable
		rec.FirstUseStep = NoStep
		rec.LastUseStep = NoStep

		if offlineOffsets != nil {
			rec.OfflineOffset = int(offlineOffsets[i])
		} else {
			rec.OfflineOffset = Online
		}
	}

	lastOpIndex := subgraph.OperatorCount() - 1

	inputSet := swiss.NewMap[int32, struct{}](uint32(len(subgraph.Inputs())))
	for _, in := range subgraph.Inputs() {
		inputSet.Put(in, struct{}{})
		b.records[in].FirstUseStep = 0
	}
	for _, out := range subgraph.Outputs() {
		b.records[out].LastUseStep = lastOpIndex
	}

	// Reverse sweep: for each operator, its outputs pull first_use_step
	// down to this operator's index and its inputs push last_use_step up
	// to it (spec.md §4.2 step 3).
	for i := subgraph.OperatorCount() - 1; i >= 0; i-- {
		op := subgraph.Operator(i)

		for _, outIdx := range op.Outputs() {
			if outIdx < 0 {
				continue
			}
			rec := &b.records[outIdx]
			if rec.FirstUseStep == NoStep || i < rec.FirstUseStep {
				rec.FirstUseStep = i
			}
		}

		consumesSubgraphInput := false
		for _, inIdx := range op.Inputs() {
			if inIdx < 0 {
				continue
			}
			if _, ok := inputSet.Get(inIdx); ok {
				consumesSubgraphInput = true
			}
		}

		for _, inIdx := range op.Inputs() {
			if inIdx < 0 {
				continue
			}
			rec := &b.records[inIdx]
			if i > rec.LastUseStep {
				rec.LastUseStep = i
			}
		}

		// Corner case (spec.md §9, reproduced verbatim, not generalized):
		// when an operator consumes a subgraph input, any of its *other*
		// inputs that are still uninitialized and need allocating inherit
		// first_use_step = i. This covers graphs whose operator inputs
		// are not a subset of subgraph inputs.
		if consumesSubgraphInput {
			for _, inIdx := range op.Inputs() {
				if inIdx < 0 {
					continue
				}
				rec := &b.records[inIdx]
				if rec.NeedsAllocating && rec.FirstUseStep == NoStep {
					rec.FirstUseStep = i
				}
			}
		}
	}

	return b.validateLifetimes()
}

// validateLifetimes enforces spec.md §4.2's failure mode: any record that
// needs allocating must have both or neither of its lifetime bounds set.
func (b *Builder) validateLifetimes() error {
	for i := 0; i < b.tensorCount; i++ {
		rec := &b.records[i]
		if rec.NeedsAllocating && rec.HasPartialLifetime() {
			return errors.Wrapf(ErrLifetimeLogic,
				"tensor %d: first_use=%d last_use=%d", i, rec.FirstUseStep, rec.LastUseStep)
		}
	}
	return nil
}

// AddScratchBuffers fills the scratch-indexed suffix of Records from
// handles, in the order the orchestrator received the requests (spec.md
// §4.2 step 4).
func (b *Builder) AddScratchBuffers(handles []model.ScratchBufferHandle) error {
	if len(handles) != b.scratchCount {
		return errors.Newf("planning: got %d scratch handles, builder reserved %d", len(handles), b.scratchCount)
	}

	for i, h := range handles {
		rec := &b.records[b.tensorCount+i]
		rec.Bytes = h.Bytes
		rec.Kind = KindScratch
		rec.FirstUseStep = h.OwningOperatorIndex
		rec.LastUseStep = h.OwningOperatorIndex
		rec.OfflineOffset = Online
		rec.NeedsAllocating = true
		rec.OutSlot = Slot{Kind: SlotScratch, Index: i}
	}
	return nil
}
