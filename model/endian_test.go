package model

import (
	"encoding/binary"
	"testing"

	"github.com/tensorarena/arena/arena"
)

func TestCopyIntArrayPreservesElementSemantics(t *testing.T) {
	want := []int32{1, -2, 3, 1000000}
	src := make([]byte, len(want)*4)
	for i, v := range want {
		binary.LittleEndian.PutUint32(src[i*4:i*4+4], uint32(v))
	}

	buf := make([]byte, 4096)
	a, _, err := arena.New(buf)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}

	got, err := CopyIntArray(a, src)
	if err != nil {
		t.Fatalf("CopyIntArray: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCopyIntArrayEmpty(t *testing.T) {
	buf := make([]byte, 256)
	a, _, err := arena.New(buf)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	got, err := CopyIntArray(a, nil)
	if err != nil {
		t.Fatalf("CopyIntArray: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
