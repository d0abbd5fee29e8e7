package model

import (
	"encoding/binary"
	"testing"

	"github.com/tensorarena/arena/arena"
)

func newOfflineTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	a, _, err := arena.New(make([]byte, 4096))
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	return a
}

func encodeOfflineTable(version, subgraph, n int32, offsets []int32) []byte {
	buf := make([]byte, 12+len(offsets)*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(version))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(subgraph))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n))
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(buf[12+i*4:16+i*4], uint32(o))
	}
	return buf
}

func TestParseOfflineAllocationTable(t *testing.T) {
	buf := encodeOfflineTable(1, 0, 3, []int32{0, -1, 1024})

	table, err := ParseOfflineAllocationTable(newOfflineTestArena(t), buf)
	if err != nil {
		t.Fatalf("ParseOfflineAllocationTable: %v", err)
	}
	if table.Version != 1 || table.SubgraphIndex != 0 {
		t.Fatalf("unexpected header: %+v", table)
	}
	want := []int32{0, -1, 1024}
	for i, w := range want {
		if table.Offsets[i] != w {
			t.Fatalf("Offsets[%d] = %d, want %d", i, table.Offsets[i], w)
		}
	}
}

func TestParseOfflineAllocationTableTooShort(t *testing.T) {
	a := newOfflineTestArena(t)
	if _, err := ParseOfflineAllocationTable(a, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated header")
	}

	buf := encodeOfflineTable(1, 0, 5, []int32{1, 2})
	if _, err := ParseOfflineAllocationTable(a, buf); err == nil {
		t.Fatalf("expected error for truncated offsets")
	}
}
