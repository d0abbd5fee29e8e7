// Package allocator implements the orchestrator described in spec.md §4.4:
// a single Allocator drives a fixed host-supplied arena through the
// Idle → Allocating → Frozen lifecycle, resolving a serialized model's
// tensors and operators and committing a static memory plan for them.
package allocator

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/tensorarena/arena/arena"
	"github.com/tensorarena/arena/arena/planning"
	"github.com/tensorarena/arena/model"
)

// state is the allocator's lifecycle position (spec.md §3, "Lifecycle").
type state int

const (
	stateIdle state = iota
	stateAllocating
	stateFrozen
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateAllocating:
		return "Allocating"
	case stateFrozen:
		return "Frozen"
	default:
		return "Unknown"
	}
}

// Allocator is the model allocator: one arena, one model, one committed
// plan. Not safe for concurrent use — reentrant calls are rejected by the
// state machine rather than serialized (spec.md §5).
type Allocator struct {
	arena    *arena.Arena
	logger   *slog.Logger
	reporter ErrorReporter
	strategy planning.AllocationStrategy

	state state

	evalTensors    []model.EvalTensor
	nodes          []model.NodeAndRegistration
	pendingScratch []model.ScratchBufferHandle
	scratchHandles []model.ScratchBufferHandle
	suballocations []planning.Suballocation
	detailedStats  arena.DetailedStatistics

	// modelBase and modelEnd bound the serialized model's own backing bytes,
	// used by IsConstant to tell a constant tensor's pointer (into the model)
	// apart from an arena-resident one.
	modelBase unsafe.Pointer
	modelEnd  unsafe.Pointer

	usedBytes int
}

// Create aligns buf up to arena.Alignment bytes and constructs an Allocator
// over it (spec.md §4.4, "create"). lostBytes reports how many leading
// bytes were sacrificed to alignment.
func Create(buf []byte, opts Options) (alloc *Allocator, lostBytes int, err error) {
	opts = opts.withDefaults()

	a, lostBytes, err := arena.New(buf)
	if err != nil {
		return nil, 0, errors.Wrap(err, "allocator: constructing arena")
	}
	if lostBytes > 0 {
		opts.Logger.Debug("arena realigned on construction", "lostBytes", lostBytes)
	}

	return &Allocator{
		arena:    a,
		logger:   opts.Logger,
		reporter: opts.Reporter,
		strategy: opts.Strategy,
		state:    stateIdle,
	}, lostBytes, nil
}

// UsedBytes returns head_used+tail_used as of the last successful commit,
// the diagnostics counter named in spec.md §6.
func (a *Allocator) UsedBytes() int { return a.usedBytes }

// State returns the allocator's current lifecycle state.
func (a *Allocator) State() string { return a.state.String() }

// Statistics reports the underlying arena's byte usage for host-side
// diagnostics (spec.md §6, "used-bytes counter for diagnostics").
func (a *Allocator) Statistics() arena.Statistics { return a.arena.Statistics() }

// DetailedStatistics reports min/max allocation sizes and unused-range
// tracking over the committed static memory plan. Zero-valued until
// FinishModelAllocation has committed a plan.
func (a *Allocator) DetailedStatistics() arena.DetailedStatistics { return a.detailedStats }

// CheckCorruption verifies every allocation's corruption margin is still
// intact. Always nil outside the debug_arena build tag.
func (a *Allocator) CheckCorruption() error { return a.arena.CheckCorruption() }

func (a *Allocator) fail(err error) error {
	a.logger.Error(err.Error())
	if a.reporter != nil {
		a.reporter.Report("%v", err)
	}
	return err
}

// StartModelAllocation resolves schema's single subgraph into a fresh
// EvalTensor array and NodeAndRegistration array, both tail-allocated, and
// transitions Idle → Allocating. It must be called exactly once per model
// before any scratch request (spec.md §4.4).
func (a *Allocator) StartModelAllocation(schema model.Schema, resolver model.OpResolver) ([]model.NodeAndRegistration, []model.EvalTensor, error) {
	if a.state != stateIdle {
		return nil, nil, a.fail(errors.Wrap(ErrReentrantAllocation, "StartModelAllocation"))
	}
	if schema.SubgraphCount() != 1 {
		return nil, nil, a.fail(errors.Wrapf(ErrUnsupportedModel,
			"expected exactly one subgraph, got %d", schema.SubgraphCount()))
	}

	a.pendingScratch = nil
	a.state = stateAllocating

	sg := schema.Subgraph(0)
	tensorCount := sg.TensorCount()
	opCount := sg.OperatorCount()

	evalTensors, err := a.allocateEvalTensors(sg, tensorCount)
	if err != nil {
		a.state = stateIdle
		return nil, nil, a.fail(err)
	}

	nodes, err := a.allocateNodes(schema, sg, resolver, opCount)
	if err != nil {
		a.state = stateIdle
		return nil, nil, a.fail(err)
	}

	a.evalTensors = evalTensors
	a.nodes = nodes
	a.logger.Debug("model allocation started", "tensors", tensorCount, "operators", opCount)
	return nodes, evalTensors, nil
}

func (a *Allocator) allocateEvalTensors(sg model.SubgraphView, tensorCount int) ([]model.EvalTensor, error) {
	var evalTensors []model.EvalTensor
	if tensorCount > 0 {
		elemSize := int(unsafe.Sizeof(model.EvalTensor{}))
		ptr, err := a.arena.AllocateFromTail(tensorCount*elemSize, 8)
		if err != nil {
			return nil, errors.Wrap(err, "allocating EvalTensor array")
		}
		evalTensors = unsafe.Slice((*model.EvalTensor)(ptr), tensorCount)
	}

	for i := 0; i < tensorCount; i++ {
		tv := sg.Tensor(i)
		et := &evalTensors[i]
		et.Type = tv.Type()
		et.Shape = model.Shape{Dims: tv.Shape()}
		et.IsVariable = tv.IsVariable()
		if buf := tv.Buffer(); len(buf) > 0 {
			et.Data = unsafe.Pointer(&buf[0])
			a.trackModelBounds(et.Data, len(buf))
		}
	}
	return evalTensors, nil
}

// trackModelBounds widens [a.modelBase, a.modelEnd) to cover [ptr, ptr+size),
// so IsConstant can later distinguish a constant tensor's pointer (into the
// model's own bytes) from one resolved into the arena.
func (a *Allocator) trackModelBounds(ptr unsafe.Pointer, size int) {
	end := unsafe.Add(ptr, size)
	if a.modelBase == nil || uintptr(ptr) < uintptr(a.modelBase) {
		a.modelBase = ptr
	}
	if uintptr(end) > uintptr(a.modelEnd) {
		a.modelEnd = end
	}
}

func (a *Allocator) allocateNodes(schema model.Schema, sg model.SubgraphView, resolver model.OpResolver, opCount int) ([]model.NodeAndRegistration, error) {
	var nodes []model.NodeAndRegistration
	if opCount > 0 {
		elemSize := int(unsafe.Sizeof(model.NodeAndRegistration{}))
		ptr, err := a.arena.AllocateFromTail(opCount*elemSize, 8)
		if err != nil {
			return nil, errors.Wrap(err, "allocating NodeAndRegistration array")
		}
		nodes = unsafe.Slice((*model.NodeAndRegistration)(ptr), opCount)
	}

	for i := 0; i < opCount; i++ {
		op := sg.Operator(i)
		if op.HasBuiltinOptions() && op.HasCustomOptions() {
			return nil, errors.Wrapf(ErrUnsupportedModel,
				"operator %d carries both builtin and custom options", i)
		}

		code := schema.Opcode(int(op.OpcodeIndex()))
		reg, err := resolver.FindOp(code)
		if err != nil {
			return nil, errors.Wrapf(ErrMissingRegistration, "operator %d: opcode %d", i, code)
		}

		node := &nodes[i]
		node.Inputs = op.Inputs()
		node.Outputs = op.Outputs()
		node.Registration = reg

		if op.HasBuiltinOptions() {
			raw := op.BuiltinOptions()
			if len(raw) > 0 {
				dst, err := a.arena.AllocateFromTail(len(raw), 8)
				if err != nil {
					return nil, errors.Wrapf(err, "operator %d: builtin options", i)
				}
				copy(arena.PointerToSlice(dst, len(raw)), raw)
				node.BuiltinData = dst
			}
		} else if op.HasCustomOptions() {
			node.CustomData = op.CustomOptions()
		}

		if reg.Prepare != nil {
			if err := reg.Prepare(node, a.RequestScratchBufferInArena); err != nil {
				return nil, errors.Wrapf(err, "operator %d: Prepare", i)
			}
		}
	}
	return nodes, nil
}

// RequestScratchBufferInArena records a scratch buffer request from operator
// opIndex in a Go-side pending list and grows the arena head to the size
// those handles would occupy there (spec.md §4.4); the handles themselves
// are not stored in the head. Returns a dense id starting at 0. Valid only between StartModelAllocation and
// FinishModelAllocation.
func (a *Allocator) RequestScratchBufferInArena(opIndex, size int) (int, error) {
	if a.state != stateAllocating {
		return 0, a.fail(errors.Wrap(ErrReentrantAllocation,
			"RequestScratchBufferInArena called outside an active allocation"))
	}
	if size < 0 {
		return 0, a.fail(errors.Newf("allocator: negative scratch size %d", size))
	}

	id := len(a.pendingScratch)
	elemSize := int(unsafe.Sizeof(model.ScratchBufferHandle{}))
	if err := a.arena.EnsureHeadSize((id+1)*elemSize, 8); err != nil {
		return 0, a.fail(err)
	}
	a.pendingScratch = append(a.pendingScratch, model.ScratchBufferHandle{
		Bytes:               size,
		OwningOperatorIndex: opIndex,
	})
	return id, nil
}

// FinishModelAllocation moves the pending scratch requests to the tail,
// commits the static memory plan, allocates persistent storage for every
// variable tensor, and transitions Allocating → Frozen (spec.md §4.4).
func (a *Allocator) FinishModelAllocation(schema model.Schema) ([]model.ScratchBufferHandle, error) {
	if a.state != stateAllocating {
		return nil, a.fail(errors.Wrap(ErrFinishWithoutStart, "FinishModelAllocation"))
	}

	scratchHandles, err := a.moveScratchHandlesToTail()
	if err != nil {
		return nil, a.fail(err)
	}

	if err := a.commitStaticMemoryPlan(schema, scratchHandles); err != nil {
		return nil, a.fail(err)
	}

	if err := a.allocateVariableTensors(schema); err != nil {
		return nil, a.fail(err)
	}

	a.scratchHandles = scratchHandles
	a.usedBytes = a.arena.HeadUsed() + a.arena.TailUsed()
	a.state = stateFrozen
	a.logger.Debug("model allocation finished", "usedBytes", a.usedBytes, "scratchCount", len(scratchHandles))
	return scratchHandles, nil
}

func (a *Allocator) moveScratchHandlesToTail() ([]model.ScratchBufferHandle, error) {
	n := len(a.pendingScratch)
	if n == 0 {
		a.pendingScratch = nil
		return nil, nil
	}

	elemSize := int(unsafe.Sizeof(model.ScratchBufferHandle{}))
	ptr, err := a.arena.AllocateFromTail(n*elemSize, 8)
	if err != nil {
		return nil, errors.Wrap(err, "moving scratch handles to tail")
	}
	scratchHandles := unsafe.Slice((*model.ScratchBufferHandle)(ptr), n)
	copy(scratchHandles, a.pendingScratch)
	a.pendingScratch = nil
	return scratchHandles, nil
}

func (a *Allocator) allocateVariableTensors(schema model.Schema) error {
	for i := range a.evalTensors {
		if !a.evalTensors[i].IsVariable {
			continue
		}
		size, err := a.evalTensors[i].ByteSize()
		if err != nil {
			return errors.Wrapf(err, "variable tensor %d", i)
		}
		ptr, err := a.arena.AllocateFromTail(arena.AlignUp(size, arena.Alignment), arena.Alignment)
		if err != nil {
			return errors.Wrapf(err, "variable tensor %d: %d bytes", i, size)
		}
		clear(arena.PointerToSlice(ptr, size))
		a.evalTensors[i].Data = ptr
	}
	return nil
}

// AllocatePersistentBuffer reserves size bytes from the tail, 16-byte
// aligned. May be called at any time (spec.md §4.4).
func (a *Allocator) AllocatePersistentBuffer(size int) (unsafe.Pointer, error) {
	ptr, err := a.arena.AllocateFromTail(arena.AlignUp(size, arena.Alignment), arena.Alignment)
	if err != nil {
		return nil, a.fail(err)
	}
	return ptr, nil
}

// AllocatePersistentFullTensor carves a FullTensor (including its
// quantization arrays and data buffer) from the tail and populates it from
// schema's tensor at index.
func (a *Allocator) AllocatePersistentFullTensor(schema model.Schema, index int) (*model.FullTensor, error) {
	return a.allocateFullTensor(schema, index, a.arena.AllocateFromTail)
}

// AllocateTempFullTensor is identical to AllocatePersistentFullTensor except
// every carved region comes from the temp sub-region, released by the next
// ResetTempAllocations.
func (a *Allocator) AllocateTempFullTensor(schema model.Schema, index int) (*model.FullTensor, error) {
	return a.allocateFullTensor(schema, index, a.arena.AllocateTemp)
}

func (a *Allocator) allocateFullTensor(schema model.Schema, index int, allocate func(size int, align uint) (unsafe.Pointer, error)) (*model.FullTensor, error) {
	sg := schema.Subgraph(0)
	tv := sg.Tensor(index)

	ptr, err := allocate(int(unsafe.Sizeof(model.FullTensor{})), 8)
	if err != nil {
		return nil, a.fail(errors.Wrapf(err, "tensor %d: FullTensor struct", index))
	}
	ft := (*model.FullTensor)(ptr)
	ft.Type = tv.Type()
	ft.Shape = model.Shape{Dims: tv.Shape()}
	ft.Name = tv.Name()
	ft.IsVariable = tv.IsVariable()

	qp := tv.Quantization()
	if len(qp.Scale) > 0 {
		scalePtr, err := allocate(len(qp.Scale)*4, 4)
		if err != nil {
			return nil, a.fail(errors.Wrapf(err, "tensor %d: quantization scale", index))
		}
		scaleSlice := unsafe.Slice((*float32)(scalePtr), len(qp.Scale))
		copy(scaleSlice, qp.Scale)
		ft.Quantization.Scale = scaleSlice
	}
	if len(qp.ZeroPoint) > 0 {
		zpPtr, err := allocate(len(qp.ZeroPoint)*4, 4)
		if err != nil {
			return nil, a.fail(errors.Wrapf(err, "tensor %d: quantization zero point", index))
		}
		zpSlice := unsafe.Slice((*int32)(zpPtr), len(qp.ZeroPoint))
		copy(zpSlice, qp.ZeroPoint)
		ft.Quantization.ZeroPoint = zpSlice
	}
	ft.Quantization.QuantizedDimension = qp.QuantizedDimension

	size, err := ft.ByteSize()
	if err != nil {
		return nil, a.fail(errors.Wrapf(err, "tensor %d", index))
	}
	dataPtr, err := allocate(arena.AlignUp(size, arena.Alignment), arena.Alignment)
	if err != nil {
		return nil, a.fail(errors.Wrapf(err, "tensor %d: %d bytes", index, size))
	}
	ft.Data = dataPtr
	return ft, nil
}

// ResetTempAllocations releases every outstanding temp allocation.
func (a *Allocator) ResetTempAllocations() { a.arena.ResetTempAllocations() }

// GetScratchBuffer looks up scratch buffer id in handles, the slice
// returned by FinishModelAllocation.
func GetScratchBuffer(handles []model.ScratchBufferHandle, id int) (*model.ScratchBufferHandle, error) {
	if id < 0 || id >= len(handles) {
		return nil, errors.Newf("allocator: scratch id %d out of range [0,%d)", id, len(handles))
	}
	return &handles[id], nil
}
