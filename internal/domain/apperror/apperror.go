// Package apperror defines the error taxonomy shared by the DAP domain and
// application layers. Every failure a caller can act on carries a Kind, which
// the presentation layer translates into a transport status.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of the operation that produced it.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindAuthorization Kind = "AUTHORIZATION"
	KindConfiguration Kind = "CONFIGURATION"
	KindPayload       Kind = "PAYLOAD"
	KindInternal      Kind = "INTERNAL"
)

// Error is a classified domain error.
//
// Message is safe to show to any caller. Detail holds context that only
// privileged actors may see (for example the deposit an internal id is
// already bound to).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Detail  string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches errors by Code so that sentinels compare equal to any error
// derived from them with With or Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of the sentinel with a more specific message.
func (e *Error) With(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WithDetail returns a copy carrying privileged detail.
func (e *Error) WithDetail(format string, args ...any) *Error {
	c := *e
	c.Detail = fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of the sentinel wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

func newSentinel(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Sentinels.
var (
	ErrInvalidInput = newSentinel(KindValidation, "INVALID_INPUT", "invalid input")

	ErrDepositNotFound    = newSentinel(KindNotFound, "DEPOSIT_NOT_FOUND", "deposit not found")
	ErrAttachmentNotFound = newSentinel(KindNotFound, "ATTACHMENT_NOT_FOUND", "attachment not found")
	ErrActivationNotFound = newSentinel(KindNotFound, "ACTIVATION_NOT_FOUND", "activation record not found")
	ErrBlobNotFound       = newSentinel(KindNotFound, "BLOB_NOT_FOUND", "stored file not found")

	ErrAlreadyUploaded         = newSentinel(KindConflict, "ATTACHMENT_ALREADY_UPLOADED", "a document of this type was already uploaded for the deposit")
	ErrInternalIDAlreadyUsed   = newSentinel(KindConflict, "INTERNAL_ID_ALREADY_USED", "internal id is already bound to another deposit")
	ErrDepositAlreadyActivated = newSentinel(KindConflict, "DEPOSIT_ALREADY_ACTIVATED", "deposit already has a different internal id")
	ErrInvalidTransition       = newSentinel(KindConflict, "INVALID_STATUS_TRANSITION", "status transition not allowed")
	ErrRenewalDisabled         = newSentinel(KindConflict, "RENEWAL_DISABLED", "automatic renewal is not enabled")
	ErrStaleVersion            = newSentinel(KindConflict, "STALE_VERSION", "deposit was modified concurrently")

	ErrForbidden = newSentinel(KindAuthorization, "FORBIDDEN", "actor is not allowed to access this resource")

	ErrNoTierForTerm = newSentinel(KindConfiguration, "NO_TIER_FOR_TERM", "no interest tier configured for term")

	ErrPayloadTooLarge = newSentinel(KindPayload, "PAYLOAD_TOO_LARGE", "file exceeds the size limit")
	ErrInvalidFormat   = newSentinel(KindPayload, "INVALID_FORMAT", "file content does not match the document type")
)

// KindOf returns the Kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
