package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so adapters can map it to a transport code.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindGraphInvalid Kind = "graph_invalid"
	KindConcurrency  Kind = "concurrency"
	KindInternal     Kind = "internal"
)

// Error is the typed failure returned by the engine.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// NewError builds an Error without a cause.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind. When the target carries a message, the message must match too,
// so ErrSessionNotFound is distinct from other not_found errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrGraphInvalid = &Error{Kind: KindGraphInvalid}
	ErrConcurrency  = &Error{Kind: KindConcurrency}
)

// ErrSessionNotFound is returned when a consultation ID cannot be found in the store.
var ErrSessionNotFound = &Error{Kind: KindNotFound, Message: "session not found"}

// ErrVersionConflict is returned by stores when the saved version does not match the stored one.
var ErrVersionConflict = &Error{Kind: KindConcurrency, Message: "version conflict"}

// GraphInvalidError reports a structural defect found while loading a graph.
type GraphInvalidError struct {
	NodeID string
	Reason string
}

func (e *GraphInvalidError) Error() string {
	if e.NodeID == "" {
		return "invalid graph: " + e.Reason
	}
	return fmt.Sprintf("invalid graph at node %q: %s", e.NodeID, e.Reason)
}

func (e *GraphInvalidError) Is(target error) bool {
	return target == ErrGraphInvalid
}

// KindOf extracts the failure kind of err, or KindInternal when err is untyped.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *GraphInvalidError
	if errors.As(err, &ge) {
		return KindGraphInvalid
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the human readable part of err without the operation prefix.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
