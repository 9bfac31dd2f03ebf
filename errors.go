package jsonstreams

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrStreamClosed is returned when writing into, opening a child of, or
	// closing a container that has already been closed.
	ErrStreamClosed = errors.New("jsonstreams: stream closed")

	// ErrModifyWrongStream is returned when writing to a parent while one of
	// its children is still open. Because output is streamed there is no way
	// to place data in the parent until the child is closed, so this error is
	// fatal to the document.
	ErrModifyWrongStream = errors.New("jsonstreams: child container is still open")

	// ErrInvalidType is returned when a value of the wrong type is passed,
	// most commonly a non-string key for an object entry.
	ErrInvalidType = errors.New("jsonstreams: invalid type")

	// ErrInvalidOption is returned by NewStream for an unusable option.
	ErrInvalidOption = errors.New("jsonstreams: invalid option")
)

// Error describes a failed container operation.
type Error struct {
	Op    string
	Kind  Kind
	Depth int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s at depth %d: %v", e.Op, e.Kind, e.Depth, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, kind Kind, depth int, err error) error {
	return &Error{Op: op, Kind: kind, Depth: depth, Err: err}
}

func invalidKey(key any) error {
	return errors.Wrapf(ErrInvalidType, "object keys must be strings, got %T", key)
}
