package allocator

import (
	"sort"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/tensorarena/arena/arena"
	"github.com/tensorarena/arena/arena/planning"
	"github.com/tensorarena/arena/model"
)

// commitStaticMemoryPlan is the crux of FinishModelAllocation (spec.md
// §4.4): build a dense allocation-info record per tensor and scratch
// buffer, hand each to the greedy planner, verify the result fits, and
// write the committed offsets back into the live eval tensors and scratch
// handles.
func (a *Allocator) commitStaticMemoryPlan(schema model.Schema, scratchHandles []model.ScratchBufferHandle) error {
	sg := schema.Subgraph(0)
	tensorCount := len(a.evalTensors)
	scratchCount := len(scratchHandles)

	headUsed := a.arena.HeadUsed()
	windowLen := a.arena.Capacity() - headUsed - a.arena.TailUsed()
	sub, err := a.arena.Sub(headUsed, windowLen)
	if err != nil {
		return errors.Wrap(err, "carving commit scratchpad")
	}

	builder, err := planning.NewBuilder(sub, tensorCount, scratchCount)
	if err != nil {
		return errors.Wrap(err, "initializing allocation-info builder")
	}

	offlineOffsets, err := planning.OfflinePlannedOffsets(sub, schema, 0, tensorCount)
	if err != nil {
		return errors.Wrapf(ErrUnsupportedModel, "reading offline memory allocation metadata: %v", err)
	}

	if err := builder.AddTensors(sg, offlineOffsets, a.evalTensors); err != nil {
		return errors.Wrap(err, "building tensor allocation records")
	}
	if err := builder.AddScratchBuffers(scratchHandles); err != nil {
		return errors.Wrap(err, "building scratch allocation records")
	}

	// Unlike the teacher's TLSF suballocator, the planner's own working set
	// (an offset-ordered slice and a swiss.Map) is heap-managed by the Go
	// runtime rather than carved from a byte buffer, so no sub-arena slice
	// is reserved for it here.
	planner := planning.NewPlanner(arena.Alignment)

	records := builder.Records()
	handles := make([]planning.BufferHandle, len(records))
	for i := range records {
		rec := &records[i]
		if !rec.NeedsAllocating {
			continue
		}
		sizeAligned := arena.AlignUp(rec.Bytes+arena.DebugMargin, arena.Alignment)

		var handle planning.BufferHandle
		var err error
		if rec.IsOfflinePlanned() {
			handle, err = planner.AddBufferAt(sizeAligned, rec.FirstUseStep, rec.LastUseStep, rec.OfflineOffset)
		} else {
			handle, err = planner.AddBuffer(sizeAligned, rec.FirstUseStep, rec.LastUseStep, a.strategy)
		}
		if err != nil {
			return errors.Wrapf(err, "committing record %d (%s)", i, rec.Kind)
		}
		handles[i] = handle
	}

	peak := planner.MaximumMemorySize()
	if peak > windowLen {
		return errors.Wrapf(&arena.ExhaustedError{Requested: peak, Available: windowLen},
			"arena size is too small for the committed plan")
	}

	headBase := a.arena.HeadBase()
	suballocations := make([]planning.Suballocation, 0, len(records))
	for i := range records {
		rec := &records[i]
		if !rec.NeedsAllocating {
			continue
		}
		offset, err := planner.OffsetForBuffer(handles[i])
		if err != nil {
			return errors.Wrapf(err, "resolving committed offset for record %d", i)
		}
		ptr := unsafe.Add(headBase, offset)
		a.arena.CommitHeadAllocation(offset, rec.Bytes)
		suballocations = append(suballocations, planning.Suballocation{
			Offset: offset,
			Size:   rec.Bytes,
			Kind:   rec.Kind,
		})

		switch rec.OutSlot.Kind {
		case planning.SlotTensor:
			a.evalTensors[rec.OutSlot.Index].Data = ptr
		case planning.SlotScratch:
			scratchHandles[rec.OutSlot.Index].Data = ptr
		}
	}

	if err := a.arena.EnsureHeadSize(peak, arena.Alignment); err != nil {
		return errors.Wrap(err, "committing plan to arena head")
	}

	a.suballocations = suballocations
	a.detailedStats = detailedStatisticsFor(suballocations)
	return nil
}

// detailedStatisticsFor derives per-allocation min/max sizes and the gaps
// left between committed suballocations (the packing slack the strategy
// chose not to fill), for Allocator.DetailedStatistics.
func detailedStatisticsFor(suballocations []planning.Suballocation) arena.DetailedStatistics {
	var stats arena.DetailedStatistics
	stats.Clear()

	sorted := make([]planning.Suballocation, len(suballocations))
	copy(sorted, suballocations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	cursor := 0
	for _, sub := range sorted {
		if gap := sub.Offset - cursor; gap > 0 {
			stats.AddUnusedRange(gap)
		}
		stats.AddAllocation(sub.Size)
		if end := sub.Offset + sub.Size; end > cursor {
			cursor = end
		}
	}
	return stats
}
