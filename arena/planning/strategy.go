package planning

// AllocationStrategy selects how the planner chooses among the valid
// offsets for a new buffer when more than one would satisfy its lifetime
// constraints. The orchestrator passes the strategy from allocator.Options,
// which defaults to AllocationStrategyMinMemory; the other strategies exist
// for callers willing to trade packing quality for planning speed.
type AllocationStrategy uint32

const (
	// AllocationStrategyMinMemory chooses the tightest-fitting free gap,
	// minimizing the arena's peak footprint at the expense of planning
	// time. This is the default.
	AllocationStrategyMinMemory AllocationStrategy = 1 << iota
	// AllocationStrategyMinTime skips the gap search and places the buffer
	// right after the end of every already-placed buffer whose lifetime
	// overlaps it, which is fast but may leave more bytes unused than
	// MinMemory.
	AllocationStrategyMinTime
	// AllocationStrategyMinOffset chooses the lowest-addressed gap that
	// fits, regardless of how tightly it packs. Mostly useful for
	// deterministic, reproducible plans across runs.
	AllocationStrategyMinOffset
)
