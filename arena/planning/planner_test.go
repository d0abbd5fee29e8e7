package planning

import "testing"

func TestAddBufferReusesSpaceAcrossDisjointLifetimes(t *testing.T) {
	p := NewPlanner(16)

	a, err := p.AddBuffer(64, 0, 2, AllocationStrategyMinMemory)
	if err != nil {
		t.Fatalf("AddBuffer a: %v", err)
	}
	b, err := p.AddBuffer(64, 3, 5, AllocationStrategyMinMemory)
	if err != nil {
		t.Fatalf("AddBuffer b: %v", err)
	}

	offA, _ := p.OffsetForBuffer(a)
	offB, _ := p.OffsetForBuffer(b)
	if offA != offB {
		t.Fatalf("disjoint lifetimes should share an offset, got a=%d b=%d", offA, offB)
	}
	if got := p.MaximumMemorySize(); got != 64 {
		t.Fatalf("MaximumMemorySize() = %d, want 64", got)
	}
}

func TestAddBufferOverlappingLifetimesDoNotShareSpace(t *testing.T) {
	p := NewPlanner(16)

	a, err := p.AddBuffer(64, 0, 5, AllocationStrategyMinMemory)
	if err != nil {
		t.Fatalf("AddBuffer a: %v", err)
	}
	b, err := p.AddBuffer(64, 3, 8, AllocationStrategyMinMemory)
	if err != nil {
		t.Fatalf("AddBuffer b: %v", err)
	}

	offA, _ := p.OffsetForBuffer(a)
	offB, _ := p.OffsetForBuffer(b)
	if offA == offB {
		t.Fatalf("overlapping lifetimes must not share an offset, both got %d", offA)
	}
	if got := p.MaximumMemorySize(); got != 128 {
		t.Fatalf("MaximumMemorySize() = %d, want 128", got)
	}
}

func TestAddBufferAtConflictingPinnedOffset(t *testing.T) {
	p := NewPlanner(16)

	if _, err := p.AddBufferAt(64, 0, 10, 0); err != nil {
		t.Fatalf("AddBufferAt: %v", err)
	}

	if _, err := p.AddBufferAt(32, 5, 6, 32); err == nil {
		t.Fatalf("expected ErrOffsetPinned for overlapping pinned offset")
	} else if !errorsIsOffsetPinned(err) {
		t.Fatalf("got %v, want wrapping ErrOffsetPinned", err)
	}
}

func TestAddBufferAtNonOverlappingPinnedOffsetSucceeds(t *testing.T) {
	p := NewPlanner(16)

	if _, err := p.AddBufferAt(64, 0, 2, 0); err != nil {
		t.Fatalf("AddBufferAt a: %v", err)
	}
	if _, err := p.AddBufferAt(64, 0, 2, 64); err != nil {
		t.Fatalf("AddBufferAt b: %v", err)
	}
}

func TestAllocationStrategyMinTimeStacksAtPeak(t *testing.T) {
	p := NewPlanner(16)

	a, _ := p.AddBuffer(64, 0, 5, AllocationStrategyMinTime)
	b, _ := p.AddBuffer(32, 0, 1, AllocationStrategyMinTime)

	offA, _ := p.OffsetForBuffer(a)
	offB, _ := p.OffsetForBuffer(b)
	if offA != 0 {
		t.Fatalf("first buffer should land at 0, got %d", offA)
	}
	if offB != 64 {
		t.Fatalf("MinTime should stack after the overlapping buffer's end, got %d", offB)
	}
}

func TestOffsetForBufferUnknownHandle(t *testing.T) {
	p := NewPlanner(16)
	if _, err := p.OffsetForBuffer(BufferHandle(999)); err == nil {
		t.Fatalf("expected error for unknown handle")
	}
}

func TestCountTracksPlacedBuffers(t *testing.T) {
	p := NewPlanner(16)
	if p.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", p.Count())
	}
	p.AddBuffer(16, 0, 1, AllocationStrategyMinMemory)
	p.AddBuffer(16, 2, 3, AllocationStrategyMinMemory)
	if p.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", p.Count())
	}
}

func errorsIsOffsetPinned(err error) bool {
	for err != nil {
		if err == ErrOffsetPinned {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
