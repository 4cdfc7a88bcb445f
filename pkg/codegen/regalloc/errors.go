package regalloc

import "errors"

// ErrAllocationFailed is returned when no legal color exists for some
// value under its class's constraints and the current interference
// graph — a genuine allocation failure rather than a missed coalescing
// opportunity.
var ErrAllocationFailed = errors.New("regcore: register allocation failed")
