package ir

import "errors"

// Sentinel errors returned (never panicked) from pass entry points, so
// callers can map them to exit codes with errors.Is.
var (
	// ErrUnsupported marks an IR shape a pass does not (yet) handle, e.g.
	// an irreducible loop the unroller declines to touch.
	ErrUnsupported = errors.New("regcore: unsupported construct")

	// ErrInvariantBroken marks a precondition violation detected at
	// runtime, e.g. an out-of-range --stop value or an unknown --dump
	// stage given to cmd/typthon.
	ErrInvariantBroken = errors.New("regcore: precondition violated")
)
