// Package corechess carries the error taxonomy of the engine-to-host
// contract. Every boundary operation of internal/engine returns a
// *corechess.Error on failure instead of a bare error or a panic, so a
// host layer can type-switch on Kind without parsing message text.
package corechess

import "fmt"

// ErrorKind classifies why a boundary operation failed.
type ErrorKind int

const (
	// Internal marks a failure that should never be triggerable by a
	// legal caller; its presence indicates a bug in the engine itself.
	Internal ErrorKind = iota
	// InvalidFen marks a FEN string that failed to parse.
	InvalidFen
	// IllegalMove marks a move that is not legal in the current position.
	IllegalMove
	// HistoryEmpty marks an UndoMove call with nothing left to undo.
	HistoryEmpty
	// SearchAborted marks a search that stopped before completing its
	// requested work, e.g. because StopSearch was called.
	SearchAborted
	// CapacityExceeded marks a request for more resources (e.g. a
	// transposition table size) than the engine is willing to allocate.
	CapacityExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case Internal:
		return "Internal"
	case InvalidFen:
		return "InvalidFen"
	case IllegalMove:
		return "IllegalMove"
	case HistoryEmpty:
		return "HistoryEmpty"
	case SearchAborted:
		return "SearchAborted"
	case CapacityExceeded:
		return "CapacityExceeded"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every internal/engine boundary
// operation. It carries a Kind a caller can switch on, a human-readable
// message, and an optional wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error of the same Kind, so
// errors.Is(err, corechess.New(corechess.InvalidFen, "")) matches any
// InvalidFen error regardless of message. A bare ErrorKind is not a
// target; errors.As(err, &corechessErr) recovers the Kind itself.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New creates a *Error of the given kind with a formatted message.
func New(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Wrap creates a *Error of the given kind wrapping an underlying cause.
func Wrap(kind ErrorKind, cause error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Cause: cause}
}
