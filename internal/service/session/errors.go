package session

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the manager.
type Kind string

const (
	// KindValidation rejects a request before any I/O; nothing changed.
	KindValidation Kind = "validation"
	// KindGeneration means the model call failed or produced nothing usable.
	KindGeneration Kind = "generation"
	// KindPersistence means a store read or write failed.
	KindPersistence Kind = "persistence"
)

var (
	ErrEmptyMessage       = errors.New("message text is empty")
	ErrProfileUnavailable = errors.New("no signed-in profile for owner")
	ErrUnknownTab         = errors.New("unknown chat tab")
	ErrSendInFlight       = errors.New("a message is already being sent in this conversation")
	ErrInvalidTone        = errors.New("tone must be one of simple, detailed, casual")
)

// User-facing texts for failed sends.
const (
	FallbackReply      = "I'm sorry, I'm having trouble connecting right now. Please try again in a moment."
	PersistenceFailure = "We couldn't save this conversation right now. Please try again in a moment."
)

// Error is the single error type returned by Manager operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err did not come from the manager.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func generationError(op string, err error) error {
	return &Error{Kind: KindGeneration, Op: op, Err: err}
}

func persistenceError(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
