package arena

// Validatable is implemented by types that can run expensive internal
// consistency checks, used by DebugValidate.
type Validatable interface {
	Validate() error
}

// debugRecord is one allocation whose corruption margin CheckCorruption can
// still verify. Only ever populated when DebugMargin > 0 (the debug_arena
// build tag), so it costs nothing in a production build.
type debugRecord struct {
	offset int
	size   int
}
