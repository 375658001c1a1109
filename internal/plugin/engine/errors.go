package engine

import "errors"

// Engine errors.
var (
	// ErrClosed is returned when operating on a closed module.
	ErrClosed = errors.New("module execution context is closed")

	// ErrNotAFunction is returned when a named global is not callable.
	ErrNotAFunction = errors.New("global is not a function")
)
