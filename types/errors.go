package types

import "errors"

// Stable error kinds. Operations wrap these with fmt.Errorf("...: %w", ...)
// so callers can classify failures with errors.Is while still getting a
// human-readable detail.
var (
	// ErrNotFound: record absent, or present but owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrConflict: redundant or competing state transition. Safe cases
	// (stopping a stopped VM) are treated as idempotent no-ops instead.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: operation requires a different lifecycle state,
	// e.g. resizing a running VM.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument: malformed or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable: durable store or process host unreachable.
	ErrUnavailable = errors.New("unavailable")
)
