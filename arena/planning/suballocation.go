// Package planning implements the allocation-info builder and greedy memory
// planner from spec.md §4.2–§4.3: one pass over a graph produces a dense
// array of lifetime-tagged buffer requests, and the planner assigns each a
// non-overlapping byte offset inside a fixed-size arena.
package planning

import "math"

// BufferHandle is an opaque, dense id assigned to a buffer by the planner
// when it is added via Planner.AddBuffer/AddBufferAt.
type BufferHandle uint64

// NoBuffer is the BufferHandle value returned when no buffer matches a
// query.
const NoBuffer BufferHandle = math.MaxUint64

// Suballocation describes one placed buffer: where it landed and how big it
// is. Kind distinguishes an activation tensor placement from a scratch
// buffer placement for diagnostics; the planner itself treats both
// identically.
type Suballocation struct {
	Offset int
	Size   int
	Kind   BufferKind
}

// BufferKind tags what a planned Suballocation actually backs.
type BufferKind uint32

const (
	// KindActivation identifies a buffer backing an activation tensor.
	KindActivation BufferKind = iota
	// KindScratch identifies a buffer backing an operator scratch request.
	KindScratch
)

func (k BufferKind) String() string {
	switch k {
	case KindActivation:
		return "Activation"
	case KindScratch:
		return "Scratch"
	default:
		return "Unknown"
	}
}
