package planning

import "github.com/cockroachdb/errors"

// ErrLifetimeLogic is returned when a buffer that needs allocating has an
// inconsistent first_use/last_use pair (exactly one of the two left at -1).
// spec.md §4.2 calls this "a logic error in memory planner"; the text is
// preserved verbatim because host-side tooling greps for it.
var ErrLifetimeLogic = errors.New("logic error in memory planner")

// ErrOfflinePlanInvalid is returned by OfflinePlannedOffsets when an
// "OfflineMemoryAllocation" metadata entry is present but fails validation
// (bad version, bad subgraph index, or a tensor-count mismatch).
var ErrOfflinePlanInvalid = errors.New("offline memory allocation metadata is invalid")

// ErrNoFit reports that no offset satisfies a buffer's lifetime and
// alignment constraints. Planner itself never returns it: it has no
// working-window limit, so AddBuffer always finds an offset, and the caller
// compares MaximumMemorySize against the space it has.
var ErrNoFit = errors.New("no offset satisfies the requested buffer's lifetime constraints")

// ErrOffsetPinned is returned by Planner.AddBufferAt when a fixed offset
// collides with another buffer whose lifetime overlaps it.
var ErrOffsetPinned = errors.New("offline-pinned offset collides with an overlapping buffer")
