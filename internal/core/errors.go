package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by the service matches at most one
// of these through errors.Is; the web layer maps them to status codes.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate resource")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrValidation        = errors.New("validation failed")
	ErrIO                = errors.New("io failure")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %v", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// DuplicateError reports a uniqueness collision.
type DuplicateError struct {
	Resource string
	Field    string
	Value    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s already exists: %s", e.Resource, e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// TransitionError reports a stage move that the pipeline does not allow.
type TransitionError struct {
	From    Stage
	To      Stage
	Allowed []Stage
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot move deal from %s to %s, allowed transitions: [%s]",
		e.From, e.To, strings.Join(allowed, ", "))
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ValidationError represents invalid input for a single field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, value, message string) error {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ioError wraps a storage or stream failure so it matches ErrIO.
type ioError struct {
	op  string
	err error
}

func (e *ioError) Error() string { return e.op + ": " + e.err.Error() }

func (e *ioError) Unwrap() []error { return []error{ErrIO, e.err} }

func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	// Domain errors from the store pass through untouched.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidTransition) {
		return err
	}
	return &ioError{op: op, err: err}
}
