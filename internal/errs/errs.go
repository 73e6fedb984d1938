// Package errs defines the closed set of error kinds that drive transport-layer
// policy for the discovery core (auth, ticket lookups, session decode,
// retrieval, LLM calls, reflection, logging, client disconnect).
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAuthMissing          Kind = "auth_missing"
	KindAuthInvalid          Kind = "auth_invalid"
	KindTicketNotFound       Kind = "ticket_not_found"
	KindTicketForbidden      Kind = "ticket_forbidden"
	KindSessionDecodeError   Kind = "session_decode_error"
	KindRetrievalUnavailable Kind = "retrieval_unavailable"
	KindLLMTransientError    Kind = "llm_transient_error"
	KindLLMValidationError   Kind = "llm_validation_error"
	KindReflectionFailure    Kind = "reflection_failure"
	KindLoggingFailure       Kind = "logging_failure"
	KindClientDisconnect     Kind = "client_disconnect"
	KindInternal             Kind = "internal"
)

// Error wraps a Kind with a message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error for the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
