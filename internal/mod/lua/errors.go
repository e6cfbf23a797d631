package lua

import "errors"

// Lua runtime errors.
var (
	// ErrStateClosed is returned when a closed state is used.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotAFunction is returned when a named global is not callable.
	ErrNotAFunction = errors.New("global is not a function")
)
