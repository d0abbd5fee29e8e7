package planning

// SlotKind identifies which array an AllocationInfo.OutSlot.Index indexes
// into. Keeping this as an (kind, index) pair instead of a raw pointer lets
// the builder run without depending on the identity of the eval-tensor or
// scratch-handle arrays it will eventually be resolved against (spec.md §9,
// "back-references without cyclic ownership").
type SlotKind uint8

const (
	// SlotTensor means Index is a tensor index into the model's EvalTensor
	// array.
	SlotTensor SlotKind = iota
	// SlotScratch means Index is a scratch buffer id.
	SlotScratch
)

// Slot is a back-reference to the pointer field an AllocationInfo record
// must be committed into once the planner has assigned it an offset.
type Slot struct {
	Kind  SlotKind
	Index int
}

// NoStep is the sentinel used for an unset first_use_step/last_use_step.
const NoStep = -1

// Online is the sentinel offline-offset value meaning "the planner should
// choose this buffer's placement"; any other value pins the buffer to that
// exact arena-relative byte offset (spec.md §3, "offline offset table").
const Online = -1

// AllocationInfo is one record produced by Builder: a single tensor or
// scratch buffer's size, lifetime, and (optional) pinned placement.
type AllocationInfo struct {
	// Bytes is the unaligned byte footprint of the buffer.
	Bytes int
	// FirstUseStep is the earliest operator index that reads or writes
	// this buffer, or NoStep if not yet known.
	FirstUseStep int
	// LastUseStep is the latest operator index that reads or writes this
	// buffer, or NoStep if not yet known.
	LastUseStep int
	// OfflineOffset is Online, or a fixed arena-relative byte offset
	// supplied by an "OfflineMemoryAllocation" metadata entry.
	OfflineOffset int
	// NeedsAllocating is false for constant and variable tensors, which
	// never participate in planning.
	NeedsAllocating bool
	// OutSlot identifies where the committed offset must be written once
	// planning finishes.
	OutSlot Slot
	// Kind distinguishes an activation-tensor record from a
	// scratch-buffer record, for diagnostics only.
	Kind BufferKind
}

// IsOfflinePlanned reports whether this record carries a pinned offset.
func (a *AllocationInfo) IsOfflinePlanned() bool {
	return a.OfflineOffset != Online
}

// HasPartialLifetime reports the malformed state spec.md §4.2 calls out:
// exactly one of FirstUseStep/LastUseStep is still NoStep while the other
// has been set.
func (a *AllocationInfo) HasPartialLifetime() bool {
	first := a.FirstUseStep == NoStep
	last := a.LastUseStep == NoStep
	return first != last
}
