package arena

import (
	cerrors "github.com/cockroachdb/errors"
)

// Alignment is the byte alignment required of every activation, variable,
// and scratch buffer committed into the arena (spec.md §6, "Alignment").
const Alignment uint = 16

// Number constrains the integer types CheckPow2/AlignUp/AlignDown accept.
type Number interface {
	~int | ~uint
}

// CheckPow2 returns ErrNotPowerOfTwo (wrapped with the offending value) if
// number is not a power of two.
func CheckPow2[T Number](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(ErrNotPowerOfTwo, "%s is %d", name, number)
	}
	return nil
}

// AlignUp rounds value up to the nearest multiple of alignment, which must
// be a power of two.
func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// AlignDown rounds value down to the nearest multiple of alignment, which
// must be a power of two.
func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}
