package planning

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	"github.com/tensorarena/arena/arena"
)

// placedBuffer is one buffer the planner has already committed to an
// offset. Planner.placed is always kept sorted by Offset so placement scans
// can walk it in address order.
type placedBuffer struct {
	handle BufferHandle
	offset int
	size   int
	first  int
	last   int
}

// Planner is the greedy memory planner of spec.md §4.3: it assigns each
// buffer handed to it a non-overlapping byte offset, honoring any
// offline-pinned offsets as hard constraints rather than hints (spec.md
// §9, "offline/online fusion").
//
// Unlike the teacher's TLSFBlockMetadata, which tracks a live timeline of
// interleaved Alloc/Free calls, Planner packs by *lifetime interval*: every
// buffer's [first, last] operator range is known before planning starts, so
// two buffers can share bytes whenever their ranges don't intersect, with
// no free-list bookkeeping required afterward.
type Planner struct {
	align  uint
	placed []*placedBuffer
	byID   *swiss.Map[BufferHandle, *placedBuffer]
	nextID BufferHandle
	peak   int
}

// NewPlanner creates a Planner that aligns every offset it hands out to
// align bytes, which must be a power of two.
func NewPlanner(align uint) *Planner {
	arena.DebugCheckPow2(align, "align")
	return &Planner{
		align: align,
		byID:  swiss.NewMap[BufferHandle, *placedBuffer](16),
	}
}

func lifetimesOverlap(aFirst, aLast, bFirst, bLast int) bool {
	return aFirst <= bLast && bFirst <= aLast
}

// relevantBuffers returns every already-placed buffer whose lifetime
// overlaps [first, last], in ascending offset order (p.placed is kept
// sorted, so a filtering pass preserves that order).
func (p *Planner) relevantBuffers(first, last int) []*placedBuffer {
	var relevant []*placedBuffer
	for _, pb := range p.placed {
		if lifetimesOverlap(first, last, pb.first, pb.last) {
			relevant = append(relevant, pb)
		}
	}
	return relevant
}

func alignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// findOffset returns the offset this buffer should land at, given the
// requested strategy. MinTime skips any gap search and stacks the buffer
// after every overlapping buffer, trading packing quality for speed.
// MinOffset takes the first (lowest-addressed) gap that fits. MinMemory
// scans every gap and takes the smallest one that fits, minimizing how far
// the arena's peak footprint grows.
func (p *Planner) findOffset(size, first, last int, strategy AllocationStrategy) int {
	relevant := p.relevantBuffers(first, last)

	switch strategy {
	case AllocationStrategyMinTime:
		candidate := 0
		for _, pb := range relevant {
			if end := pb.offset + pb.size; end > candidate {
				candidate = end
			}
		}
		return alignUp(candidate, p.align)

	case AllocationStrategyMinOffset:
		return p.firstFitOffset(relevant, size)

	default: // AllocationStrategyMinMemory
		return p.tightestFitOffset(relevant, size)
	}
}

// firstFitOffset returns the lowest-addressed gap among relevant (which is
// kept in ascending offset order) that is at least size bytes wide.
func (p *Planner) firstFitOffset(relevant []*placedBuffer, size int) int {
	candidate := 0
	for _, pb := range relevant {
		if candidate+size <= pb.offset {
			break
		}
		if aligned := alignUp(pb.offset+pb.size, p.align); aligned > candidate {
			candidate = aligned
		}
	}
	return candidate
}

// tightestFitOffset scans every gap between relevant's already-placed
// buffers and returns the start of the smallest one that fits size,
// breaking ties toward the lowest offset. Falls back to stacking after the
// last relevant buffer only when no bounded gap fits, since that is the one
// placement that can grow the arena's peak footprint.
func (p *Planner) tightestFitOffset(relevant []*placedBuffer, size int) int {
	bestOffset := -1
	bestGap := -1
	cursor := 0

	for _, pb := range relevant {
		start := alignUp(cursor, p.align)
		if gap := pb.offset - start; gap >= size && (bestGap == -1 || gap < bestGap) {
			bestGap = gap
			bestOffset = start
		}
		if end := pb.offset + pb.size; end > cursor {
			cursor = end
		}
	}
	if bestOffset != -1 {
		return bestOffset
	}
	return alignUp(cursor, p.align)
}

func (p *Planner) insert(offset, size, first, last int) BufferHandle {
	id := p.nextID
	p.nextID++

	pb := &placedBuffer{handle: id, offset: offset, size: size, first: first, last: last}
	i := sort.Search(len(p.placed), func(i int) bool { return p.placed[i].offset >= offset })
	p.placed = append(p.placed, nil)
	copy(p.placed[i+1:], p.placed[i:])
	p.placed[i] = pb

	p.byID.Put(id, pb)
	if end := offset + size; end > p.peak {
		p.peak = end
	}
	arena.DebugValidate(p)
	return id
}

// Validate checks the planner's core invariant (spec.md §4.3): no two
// placed buffers whose lifetimes overlap may also overlap in their
// committed byte ranges. Runs automatically after every placement under the
// debug_arena build tag via DebugValidate; expensive enough (O(n^2) in the
// number of placed buffers) that it never runs otherwise.
func (p *Planner) Validate() error {
	for i, a := range p.placed {
		for _, b := range p.placed[i+1:] {
			if !lifetimesOverlap(a.first, a.last, b.first, b.last) {
				continue
			}
			if a.offset < b.offset+b.size && b.offset < a.offset+a.size {
				return errors.Newf(
					"planning: buffer %d [%d,%d) and buffer %d [%d,%d) overlap in both lifetime and offset",
					a.handle, a.offset, a.offset+a.size, b.handle, b.offset, b.offset+b.size,
				)
			}
		}
	}
	return nil
}

var _ arena.Validatable = (*Planner)(nil)

// AddBuffer requests an offset for an online buffer with the given aligned
// size and lifetime, returning its handle.
func (p *Planner) AddBuffer(sizeAligned, firstStep, lastStep int, strategy AllocationStrategy) (BufferHandle, error) {
	if sizeAligned < 0 {
		return NoBuffer, errors.Newf("planning: negative buffer size %d", sizeAligned)
	}
	offset := p.findOffset(sizeAligned, firstStep, lastStep, strategy)
	return p.insert(offset, sizeAligned, firstStep, lastStep), nil
}

// AddBufferAt requests a fixed offset for an offline-pinned buffer. The
// offset is treated as a hard constraint: if it collides with another
// buffer whose lifetime overlaps this one, ErrOffsetPinned is returned and
// nothing is placed.
func (p *Planner) AddBufferAt(sizeAligned, firstStep, lastStep, fixedOffset int) (BufferHandle, error) {
	if sizeAligned < 0 {
		return NoBuffer, errors.Newf("planning: negative buffer size %d", sizeAligned)
	}

	for _, pb := range p.relevantBuffers(firstStep, lastStep) {
		if fixedOffset < pb.offset+pb.size && pb.offset < fixedOffset+sizeAligned {
			return NoBuffer, errors.Wrapf(ErrOffsetPinned,
				"offset %d size %d overlaps buffer at [%d,%d) with overlapping lifetime [%d,%d]",
				fixedOffset, sizeAligned, pb.offset, pb.offset+pb.size, pb.first, pb.last)
		}
	}

	return p.insert(fixedOffset, sizeAligned, firstStep, lastStep), nil
}

// OffsetForBuffer returns the committed byte offset for handle.
func (p *Planner) OffsetForBuffer(handle BufferHandle) (int, error) {
	pb, ok := p.byID.Get(handle)
	if !ok {
		return 0, errors.Newf("planning: unknown buffer handle %d", handle)
	}
	return pb.offset, nil
}

// MaximumMemorySize returns the highest byte index used by any placed
// buffer — the peak footprint the planner has committed to so far.
func (p *Planner) MaximumMemorySize() int {
	return p.peak
}

// Count returns the number of buffers placed so far.
func (p *Planner) Count() int {
	return len(p.placed)
}
