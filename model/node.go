package model

import "unsafe"

// KernelRegistration is the resolved kernel vtable for one operator code.
// Kernel execution itself is an external collaborator (spec.md §1); the
// allocator only needs enough of it to know an operator code resolved to
// something runnable.
type KernelRegistration struct {
	OpCode int32
	Name   string
	// Prepare is invoked by the orchestrator while building node bundles
	// (spec.md §4.4 step 4) so the operator can request scratch buffers
	// for the arena to place. It receives the node (with its builtin/custom
	// data) and the allocator's scratch-request callback.
	Prepare func(node *NodeAndRegistration, requestScratch ScratchRequester) error
}

// ScratchRequester lets an operator's Prepare callback ask the orchestrator
// for a scratch buffer, mirroring
// Allocator.RequestScratchBufferInArena(spec.md §4.4).
type ScratchRequester func(opIndex int, size int) (int, error)

// OpResolver maps a serialized opcode index to its kernel registration.
// Returning an error here is how an unresolvable opcode becomes
// ErrMissingRegistration at the orchestrator level (spec.md §7).
type OpResolver interface {
	FindOp(opCode int32) (*KernelRegistration, error)
}

// NodeAndRegistration is the per-operator bundle the orchestrator builds
// during StartModelAllocation: parsed parameters, input/output tensor
// indices, and the resolved kernel (spec.md §3, "NodeAndRegistration").
type NodeAndRegistration struct {
	Inputs  []int32
	Outputs []int32

	// BuiltinData points at builtin operator parameters parsed from the
	// model into tail-allocated, non-freeing memory (spec.md §4.4 step 4).
	// Nil if this operator carries no builtin options.
	BuiltinData unsafe.Pointer
	// CustomData holds the raw bytes of a custom operator's options,
	// attached without further parsing. Nil if this operator carries no
	// custom options.
	CustomData []byte

	Registration *KernelRegistration
}
