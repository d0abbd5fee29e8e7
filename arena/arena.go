// Package arena implements the split bump-region allocator described in
// spec.md §4.1: a contiguous byte window divided into a head (growing up
// from the low address), a tail (growing down from the high address), and
// an auxiliary temp sub-region carved from the current head end. Memory it
// hands out always lies inside the wrapped buffer; only its own bookkeeping
// (a Sub view, debug records) lives on the Go heap.
package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Arena is a single contiguous byte window owned exclusively by a model
// allocator. All pointer arithmetic needed to service an allocation is
// performed inside this package; callers never compute offsets themselves
// (spec.md §9, "split-arena discipline").
type Arena struct {
	data []byte
	base unsafe.Pointer

	capacity int
	headUsed int
	tailUsed int
	tempUsed int

	allocationCount int
	allocationBytes int
	debugRecords    []debugRecord
}

// New wraps buf as an Arena, aligning its usable start up to Alignment
// bytes. lostBytes reports how many leading bytes of buf were sacrificed to
// alignment, so the host can account for them when sizing its arena.
func New(buf []byte) (a *Arena, lostBytes int, err error) {
	if len(buf) == 0 {
		return nil, 0, errors.New("arena: backing buffer must not be empty")
	}

	addr := uintptr(unsafe.Pointer(&buf[0]))
	alignedAddr := AlignUp(int(addr), Alignment)
	lostBytes = alignedAddr - int(addr)
	if lostBytes >= len(buf) {
		return nil, 0, errors.Newf(
			"arena: buffer of %d bytes is too small to align up to %d bytes",
			len(buf), Alignment,
		)
	}

	a = &Arena{
		data:     buf,
		base:     unsafe.Add(unsafe.Pointer(&buf[0]), lostBytes),
		capacity: len(buf) - lostBytes,
	}
	return a, lostBytes, nil
}

// Capacity returns the total number of bytes this arena can ever hand out.
func (a *Arena) Capacity() int { return a.capacity }

// HeadUsed returns the number of bytes currently committed to the head.
func (a *Arena) HeadUsed() int { return a.headUsed }

// TailUsed returns the number of bytes currently committed to the tail.
func (a *Arena) TailUsed() int { return a.tailUsed }

// TempUsed returns the number of bytes currently carved out of the temp
// sub-region since the last ResetTempAllocations.
func (a *Arena) TempUsed() int { return a.tempUsed }

// HeadBase returns the address of the first byte of the head region. Every
// committed plan offset (arena/planning) is relative to this address.
func (a *Arena) HeadBase() unsafe.Pointer { return a.base }

// AllocateFromTail reserves size bytes at the current tail, aligning the
// tail cursor down to align first. Returns ErrNotPowerOfTwo if align isn't
// a power of two, or an *ExhaustedError if head_used+tail_used would exceed
// capacity. Tail allocations are never freed individually; the whole arena
// is dropped at once by its owner.
func (a *Arena) AllocateFromTail(size int, align uint) (unsafe.Pointer, error) {
	if err := CheckPow2(align, "align"); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errors.Newf("arena: negative tail allocation size %d", size)
	}

	reserved := size + DebugMargin
	currentTailStart := a.capacity - a.tailUsed
	desiredStart := AlignDown(currentTailStart-reserved, align)
	newTailUsed := a.capacity - desiredStart

	if a.headUsed+newTailUsed > a.capacity {
		return nil, &ExhaustedError{
			Requested: newTailUsed - a.tailUsed,
			Available: a.capacity - a.headUsed - a.tailUsed,
		}
	}

	a.tailUsed = newTailUsed
	a.recordAllocation(desiredStart, size)
	return unsafe.Add(a.base, desiredStart), nil
}

// EnsureHeadSize grows the head region so its aligned size is at least
// size, failing with an *ExhaustedError if that would collide with the
// tail. Idempotent: calling it again with a size no larger than the
// current head does nothing. The caller is responsible for guaranteeing
// the previous head contents are no longer needed before growing it.
func (a *Arena) EnsureHeadSize(size int, align uint) error {
	if err := CheckPow2(align, "align"); err != nil {
		return err
	}

	desired := AlignUp(size, align)
	if desired <= a.headUsed {
		return nil
	}

	if desired+a.tailUsed > a.capacity {
		return &ExhaustedError{
			Requested: desired - a.headUsed,
			Available: a.capacity - a.headUsed - a.tailUsed,
		}
	}

	a.headUsed = desired
	return nil
}

// AllocateTemp carves a temporary block from the current head end. Repeated
// calls stack forward; a single ResetTempAllocations returns the temp
// cursor to the head. Temp allocations may never coexist with a call to
// EnsureHeadSize that commits a new head.
func (a *Arena) AllocateTemp(size int, align uint) (unsafe.Pointer, error) {
	if err := CheckPow2(align, "align"); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, errors.Newf("arena: negative temp allocation size %d", size)
	}

	tempStart := AlignUp(a.headUsed+a.tempUsed, align)
	newTempEnd := tempStart + size + DebugMargin

	if newTempEnd+a.tailUsed > a.capacity {
		return nil, &ExhaustedError{
			Requested: newTempEnd - (a.headUsed + a.tempUsed),
			Available: a.capacity - a.headUsed - a.tempUsed - a.tailUsed,
		}
	}

	a.tempUsed = newTempEnd - a.headUsed
	a.recordAllocation(tempStart, size)
	return unsafe.Add(a.base, tempStart), nil
}

// ResetTempAllocations releases every outstanding temp allocation. Calling
// it twice in a row is equivalent to calling it once.
func (a *Arena) ResetTempAllocations() {
	a.tempUsed = 0
}

// AvailableMemory returns capacity-head_used-tail_used, rounded down to
// align.
func (a *Arena) AvailableMemory(align uint) int {
	free := a.capacity - a.headUsed - a.tailUsed
	if free < 0 {
		return 0
	}
	return AlignDown(free, align)
}

// Sub carves an Arena view over [offset, offset+length) of this arena's
// backing storage, for use as throwaway scratch memory (the sub-arena the
// orchestrator builds to run the builder and planner in, spec.md §4.4 step
// 1). The returned Arena shares no state with its parent; growing it never
// touches the parent's cursors.
func (a *Arena) Sub(offset, length int) (*Arena, error) {
	if offset < 0 || length < 0 || offset+length > a.capacity {
		return nil, errors.Newf(
			"arena: sub-arena [%d, %d) out of bounds for capacity %d",
			offset, offset+length, a.capacity,
		)
	}
	return &Arena{
		data:     a.data,
		base:     unsafe.Add(a.base, offset),
		capacity: length,
	}, nil
}

// Statistics summarizes current byte usage for host diagnostics.
func (a *Arena) Statistics() Statistics {
	return Statistics{
		AllocationCount: a.allocationCount,
		AllocationBytes: a.allocationBytes,
		HeadBytes:       a.headUsed,
		TailBytes:       a.tailUsed,
	}
}

// recordAllocation accounts for one AllocateFromTail/AllocateTemp call and,
// under the debug_arena build tag, writes and remembers its corruption
// margin so a later CheckCorruption can verify it. offset and size are
// relative to a.base and exclude the margin itself.
func (a *Arena) recordAllocation(offset, size int) {
	a.allocationCount++
	a.allocationBytes += size
	if DebugMargin == 0 {
		return
	}
	WriteMagicValue(unsafe.Add(a.base, offset), size)
	a.debugRecords = append(a.debugRecords, debugRecord{offset: offset, size: size})
}

// CommitHeadAllocation records the corruption margin for a single buffer the
// memory planner placed within the head region. size must not include the
// margin: the caller is responsible for having asked the planner to place
// size+DebugMargin bytes so the margin has somewhere to live.
func (a *Arena) CommitHeadAllocation(offset, size int) {
	a.recordAllocation(offset, size)
}

// CheckCorruption walks every allocation recorded since construction and
// verifies its corruption margin is still intact, returning the first
// violation found. Always nil outside the debug_arena build tag, since no
// margins are written there.
func (a *Arena) CheckCorruption() error {
	for _, rec := range a.debugRecords {
		if !ValidateMagicValue(unsafe.Add(a.base, rec.offset), rec.size) {
			return errors.Newf(
				"arena: corruption margin overwritten for allocation at offset %d size %d",
				rec.offset, rec.size,
			)
		}
	}
	return nil
}

// PointerToSlice returns a []byte view of size bytes starting at ptr. Used
// by callers that need to read or write through a pointer handed back by
// this package (e.g. variable tensor initialization).
func PointerToSlice(ptr unsafe.Pointer, size int) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}
