//go:build !debug_arena

package arena

import "unsafe"

const (
	// DebugMargin is the number of bytes of corruption-detection marker
	// written after every head/tail allocation. Zero outside the
	// debug_arena build tag, so production firmware pays nothing for it.
	DebugMargin int = 0
)

// ValidateMagicValue always returns true outside the debug_arena build tag.
func ValidateMagicValue(data unsafe.Pointer, offset int) bool {
	return true
}

// WriteMagicValue no-ops outside the debug_arena build tag.
func WriteMagicValue(data unsafe.Pointer, offset int) {
}

// DebugValidate no-ops outside the debug_arena build tag.
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 no-ops outside the debug_arena build tag.
func DebugCheckPow2[T Number](value T, name string) {
}
