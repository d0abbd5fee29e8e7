// Package model holds the runtime descriptors the arena allocator populates
// and the flat, position-independent reader interfaces it consumes a
// serialized graph through (spec.md §3, §4.5, §6). Everything in this
// package is plain data: kernel dispatch and the wire format itself are
// external collaborators reached only through the Schema interfaces here.
package model

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// ElementType enumerates the tensor element types the allocator needs to
// size buffers for. Kernel-level numeric behavior is out of scope here;
// only ByteWidth matters to planning.
type ElementType int

const (
	Float32 ElementType = iota
	Float16
	Int8
	UInt8
	Int16
	Int32
	Int64
	Bool
)

// ByteWidth returns the size in bytes of a single element of this type.
func (t ElementType) ByteWidth() int {
	switch t {
	case Float32, Int32:
		return 4
	case Float16, Int16:
		return 2
	case Int8, UInt8, Bool:
		return 1
	case Int64:
		return 8
	default:
		return 0
	}
}

// Shape is a length-prefixed integer array giving a tensor's dimensions, in
// the same representation the serialized model stores them in.
type Shape struct {
	Dims []int32
}

// ElementCount returns the product of every dimension, or 0 for a
// zero-rank shape.
func (s Shape) ElementCount() int {
	if len(s.Dims) == 0 {
		return 0
	}
	count := 1
	for _, d := range s.Dims {
		count *= int(d)
	}
	return count
}

// QuantizationParams carries the per-channel scale/zero-point arrays a
// FullTensor needs but an EvalTensor does not (spec.md §3, "FullTensor...
// richer descriptor including quantization parameters").
type QuantizationParams struct {
	Scale              []float32
	ZeroPoint          []int32
	QuantizedDimension int
}

// EvalTensor is the lightweight runtime tensor descriptor consumed by the
// inference loop: type, shape, and a data pointer that is nil until
// planning commits it (spec.md §3, "EvalTensor").
type EvalTensor struct {
	Type ElementType
	Shape
	// Data is nil until the allocator commits a plan; for constant tensors
	// it is set at StartModelAllocation time and points into the model's
	// own bytes, never into the arena.
	Data unsafe.Pointer
	// IsVariable marks a tensor whose buffer persists across inference
	// invocations, allocated once from the arena tail.
	IsVariable bool
}

// ByteSize returns this tensor's footprint, or an error if its element type
// is unrecognized.
func (t *EvalTensor) ByteSize() (int, error) {
	width := t.Type.ByteWidth()
	if width == 0 {
		return 0, errors.Newf("model: unrecognized element type %d", t.Type)
	}
	return width * t.ElementCount(), nil
}

// IsConstant reports whether this tensor's data pointer was populated
// directly from the model's own bytes rather than the arena.
func (t *EvalTensor) IsConstant(modelBase, modelEnd unsafe.Pointer) bool {
	if t.Data == nil {
		return false
	}
	return uintptr(t.Data) >= uintptr(modelBase) && uintptr(t.Data) < uintptr(modelEnd)
}

// FullTensor is the richer descriptor used for persistent or temporary
// tensors created on demand by an operator's preparation step (spec.md §3,
// "FullTensor"). It embeds EvalTensor rather than duplicating its fields.
type FullTensor struct {
	EvalTensor
	Quantization QuantizationParams
	Name         string
}
