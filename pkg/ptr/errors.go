package ptr

import (
	"errors"
	"strconv"
)

var (
	// ErrNilDereference indicates an access to the target of an empty handle.
	ErrNilDereference = errors.New("ptr: dereference of an empty handle")

	// ErrExpired indicates a promotion of a weak handle whose target was already disposed.
	ErrExpired = errors.New("ptr: weak handle expired")

	// ErrIncompatible indicates a conversion between unrelated target types.
	ErrIncompatible = errors.New("ptr: incompatible handle conversion")

	// ErrNegativeSize indicates an array factory called with a negative length.
	ErrNegativeSize = errors.New("ptr: negative array size")
)

// ConstructError reports a failed target construction. Nothing allocated by
// the failing factory call stays alive when it is returned.
type ConstructError struct {
	Type  string
	Index int // element index for array factories, -1 for single values
	Err   error
}

func (e *ConstructError) Error() string {
	if e.Index < 0 {
		return "ptr: construct " + e.Type + ": " + e.Err.Error()
	}
	return "ptr: construct " + e.Type + " element " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}
