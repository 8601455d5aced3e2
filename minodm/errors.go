package minodm

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrIO              ErrorKind = "io"
	ErrSQL             ErrorKind = "sql"
	ErrSchema          ErrorKind = "schema"
	ErrValidation      ErrorKind = "validation"
	ErrUnknownProperty ErrorKind = "unknown_property"
	ErrInvalidContext  ErrorKind = "invalid_context"
	ErrUnbound         ErrorKind = "unbound"
	ErrNotFound        ErrorKind = "not_found"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Value   any
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func SchemaError(msg string) *Error {
	return &Error{Kind: ErrSchema, Message: msg}
}

// ValidationError reports a value rejected by a field's validators.
func ValidationError(field string, value any) *Error {
	return &Error{
		Kind:    ErrValidation,
		Message: fmt.Sprintf("invalid value %v", value),
		Field:   field,
		Value:   value,
	}
}

// UnknownPropertyError reports a raw-object key not declared in the schema.
func UnknownPropertyError(name string) *Error {
	return &Error{Kind: ErrUnknownProperty, Message: "unknown property", Field: name}
}

// UnboundError reports a capability (store, schema) that was never bound.
func UnboundError(what string) *Error {
	return &Error{Kind: ErrUnbound, Message: fmt.Sprintf("%s not bound", what)}
}

func NotFoundError(collection string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("no document matched in %s", collection)}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
