package model

import (
	"encoding/binary"
	"unsafe"

	"github.com/tensorarena/arena/arena"
)

// hostIsLittleEndian is resolved once at init time and gates the zero-copy
// fast path in CopyIntArray (spec.md §4.5, §9 "endianness").
var hostIsLittleEndian = func() bool {
	var probe uint16 = 1
	return *(*byte)(unsafe.Pointer(&probe)) == 1
}()

// CopyIntArray materializes src (a little-endian int32 array as stored in
// the serialized model) as a []int32 the runtime can index directly.
//
// On a little-endian host this aliases src zero-copy: the serialized
// layout is already bit-identical to the in-memory []int32 layout, so the
// model buffer must outlive whatever holds the returned slice. On a
// big-endian host the array is copied into a freshly tail-allocated block
// of a and byte-swapped element by element; the copy preserves element
// semantics, not bit patterns (spec.md §9, "endianness").
func CopyIntArray(a *arena.Arena, src []byte) ([]int32, error) {
	n := len(src) / 4

	if hostIsLittleEndian {
		if n == 0 {
			return nil, nil
		}
		return unsafe.Slice((*int32)(unsafe.Pointer(&src[0])), n), nil
	}

	if n == 0 {
		return nil, nil
	}
	ptr, err := a.AllocateFromTail(n*4, 4)
	if err != nil {
		return nil, err
	}
	dst := unsafe.Slice((*int32)(ptr), n)
	for i := 0; i < n; i++ {
		dst[i] = int32(binary.LittleEndian.Uint32(src[i*4 : i*4+4]))
	}
	return dst, nil
}
