package model

import "errors"

// ErrorKind classifies deploy failures independent of transport.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindAuthMissing         ErrorKind = "auth_missing"
	KindAuthInvalid         ErrorKind = "auth_invalid"
	KindPrerequisite        ErrorKind = "prerequisite"
	KindProvisioningTimeout ErrorKind = "provisioning_timeout"
	KindRemoteAPI           ErrorKind = "remote_api"
)

// Error carries a stable kind alongside the message and the wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError wraps err with the given kind. A wrapped *Error keeps its
// original kind.
func WrapError(err error, kind ErrorKind, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: existing.Kind, Message: msg, Err: err}
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
