package allocator

import (
	"github.com/cockroachdb/errors"

	"github.com/tensorarena/arena/arena/planning"
)

// ErrLifetimeLogic re-exports planning.ErrLifetimeLogic so callers of this
// package never need to import arena/planning just to check an error kind.
var ErrLifetimeLogic = planning.ErrLifetimeLogic

// ErrUnsupportedModel covers every structural reason a model cannot be
// allocated for: more than one subgraph, bad offline-plan version or
// subgraph index, an offline offset count mismatch, or an operator carrying
// both builtin and custom options (spec.md §7, "UnsupportedModel").
var ErrUnsupportedModel = errors.New("model is not supported by this allocator")

// ErrMissingRegistration is returned when an operator's opcode has no
// kernel registration in the supplied resolver.
var ErrMissingRegistration = errors.New("operator opcode has no kernel registration")

// ErrReentrantAllocation is returned by StartModelAllocation when the
// allocator is not Idle (an allocation is in progress or already finished),
// and by RequestScratchBufferInArena outside the Allocating state.
// FinishModelAllocation outside that state returns ErrFinishWithoutStart.
var ErrReentrantAllocation = errors.New("start_model_allocation called while already allocating")

// ErrFinishWithoutStart is returned by FinishModelAllocation when no
// StartModelAllocation call is outstanding.
var ErrFinishWithoutStart = errors.New("finish_model_allocation called without a preceding start")
