package source

import "errors"

var (
	// ErrFormat indicates input that cannot be parsed as a single structure.
	ErrFormat = errors.New("format error")

	// ErrMissingLabel indicates input without explicit element symbols.
	ErrMissingLabel = errors.New("missing element labels")
)
