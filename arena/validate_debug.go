//go:build debug_arena

package arena

import "unsafe"

const (
	// DebugMargin is the number of bytes of corruption-detection marker
	// written immediately after every head/tail allocation under the
	// debug_arena build tag.
	DebugMargin int = 16
	// corruptionDetectionMagicValue is a 4-byte pattern written across
	// DebugMargin bytes so a kernel overrunning its buffer is caught the
	// next time CheckCorruption runs.
	corruptionDetectionMagicValue uint32 = 0x7F84E666
)

// WriteMagicValue writes the corruption-detection marker at the provided
// pointer and offset. No-ops unless the debug_arena build tag is present.
func WriteMagicValue(data unsafe.Pointer, offset int) {
	dest := unsafe.Add(data, offset)
	marginSize := DebugMargin / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < marginSize; i++ {
		*(*uint32)(dest) = corruptionDetectionMagicValue
		dest = unsafe.Add(dest, unsafe.Sizeof(uint32(0)))
	}
}

// ValidateMagicValue verifies the marker written by WriteMagicValue is
// still intact, returning false if anything has overwritten it.
func ValidateMagicValue(data unsafe.Pointer, offset int) bool {
	source := unsafe.Add(data, offset)
	marginSize := DebugMargin / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < marginSize; i++ {
		value := (*uint32)(source)
		if *value != corruptionDetectionMagicValue {
			return false
		}
		source = unsafe.Add(source, unsafe.Sizeof(uint32(0)))
	}
	return true
}

// DebugValidate calls Validate and panics if it returns an error. No-ops
// unless the debug_arena build tag is present.
func DebugValidate(validatable Validatable) {
	if err := validatable.Validate(); err != nil {
		panic(err)
	}
}

// DebugCheckPow2 panics if value is not a power of two. No-ops unless the
// debug_arena build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	if err := CheckPow2[T](value, name); err != nil {
		panic(err)
	}
}
