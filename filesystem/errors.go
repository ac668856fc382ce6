package filesystem

import (
	"errors"
	"fmt"
)

// Sentinel errors for package filesystem.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// ErrNotFound: no entry under the name, or a non-root path given to a
	// directory-only operation
	ErrNotFound = errors.New("no such entry")

	// ErrNoSpace: creation requested while the store is at capacity
	ErrNoSpace = errors.New("no space left in store")

	// ErrCapacityExceeded is the store level cause of [ErrNoSpace]
	ErrCapacityExceeded = errors.New("store capacity exceeded")

	ErrNameTooLong = errors.New("entry name too long")

	ErrInvalidOffset = errors.New("negative offset")

	// ErrNoSource: none of a seed request's content sources resolved
	ErrNoSource = errors.New("no content source resolved")

	// ErrIsDir: byte-level operation aimed at the root directory
	ErrIsDir = errors.New("is a directory")
)

// Error wraps a handler failure with the operation and the path it targeted
type Error struct {
	Op   string // Operation that failed (e.g., "read", "unlink")
	Path string // Affected path
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}

// Operation names used in [Error] and logs
const (
	OpGetattr = "getattr"
	OpReadDir = "readdir"
	OpOpen    = "open"
	OpRead    = "read"
	OpWrite   = "write"
	OpUnlink  = "unlink"
	OpSeed    = "seed"
)
