package vec

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrOutOfBounds is returned when a position lies outside the live elements.
	ErrOutOfBounds = errors.New("vec: index out of bounds")
	// ErrEmptyContainer is returned when removing from an empty vector.
	ErrEmptyContainer = errors.New("vec: empty vector")
	// ErrInvalidVector is the panic value for operations on a freed or zero Vector.
	ErrInvalidVector = errors.New("vec: use of freed or uninitialised vector")
	// ErrUnsupportedType is wrapped by TypeError.
	ErrUnsupportedType = errors.New("vec: unsupported element type")
	// ErrAllocationFailed is wrapped by AllocError and returned by Memory implementations that run dry.
	ErrAllocationFailed = errors.New("vec: allocation failed")
)

// BoundsError reports a position rejected by Insert, InsertRange or RemoveAt.
//
// errors.Is(err, ErrOutOfBounds) reports true for every BoundsError.
type BoundsError struct {
	Op       string
	Position int
	Length   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("vec: %s position %d out of bounds for length %d", e.Op, e.Position, e.Length)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// AllocError is the panic value raised when backing storage cannot be obtained.
type AllocError struct {
	Size  uintptr
	cause error
}

func (e *AllocError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("vec: allocate %d bytes: %v", e.Size, e.cause)
	}
	return fmt.Sprintf("vec: allocate %d bytes", e.Size)
}

// Unwrap exposes both ErrAllocationFailed and the Memory's own error.
func (e *AllocError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrAllocationFailed}
	}
	return []error{ErrAllocationFailed, e.cause}
}

// TypeError is the panic value raised when an element type cannot live in non-heap Memory.
type TypeError struct {
	Type reflect.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("vec: element type %s holds pointers and cannot be stored outside the Go heap", e.Type)
}

func (e *TypeError) Unwrap() error { return ErrUnsupportedType }
