package arena

import "github.com/pkg/errors"

// ErrNotPowerOfTwo is returned from CheckPow2 or other methods when an
// alignment value is not a power of two.
var ErrNotPowerOfTwo error = errors.New("alignment must be a power of two")

// ExhaustedError is returned whenever a head, tail, or temp request would
// push head_used+tail_used past the arena's capacity. It carries the byte
// counts a host can use to size a bigger arena on the next boot.
type ExhaustedError struct {
	// Requested is the number of additional bytes the failing request needed.
	Requested int
	// Available is the number of bytes that were actually free at the time
	// of the request.
	Available int
}

func (e *ExhaustedError) Error() string {
	return errors.Errorf(
		"arena exhausted: requested %d bytes, only %d available",
		e.Requested, e.Available,
	).Error()
}
