// Package apperr defines the typed errors shared by the domain services and
// mapped to HTTP responses by the handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindTimeout         Kind = "TIMEOUT"
	KindInternal        Kind = "INTERNAL"
)

// Code names a specific failure callers can match on.
type Code string

const (
	CodeValidation              Code = "ValidationFailed"
	CodeUnauthenticated         Code = "Unauthenticated"
	CodeProfileNotFound         Code = "ProfileNotFound"
	CodeAccountInactive         Code = "AccountInactive"
	CodeUnauthorized            Code = "Unauthorized"
	CodeNotFound                Code = "NotFound"
	CodeVeterinarianUnavailable Code = "VeterinarianUnavailable"
	CodeSlotTaken               Code = "SlotTaken"
	CodeDailyLimitExceeded      Code = "DailyLimitExceeded"
	CodeCannotCancel            Code = "CannotCancel"
	CodeInvalidTransition       Code = "InvalidTransition"
	CodeRemarksRequired         Code = "RemarksRequired"
	CodeReviewerRequired        Code = "ReviewerRequired"
	CodeAlreadyReviewed         Code = "AlreadyReviewed"
	CodeDuplicate               Code = "Duplicate"
	CodeRateLimited             Code = "RateLimited"
	CodeSaveTimeout             Code = "SaveTimeout"
	CodeInternal                Code = "Internal"
)

// Error is an application error carrying a kind, a code and a user facing message.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New builds an error of the given kind and code.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a new error.
func Wrap(kind Kind, code Code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Internal wraps an unexpected failure. The message is safe to show; err is not.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, CodeInternal, message, err)
}

// Sentinels for errors.Is matching. Use New or Wrap to attach a specific message.
var (
	ErrUnauthenticated         = New(KindUnauthenticated, CodeUnauthenticated, "authentication required")
	ErrProfileNotFound         = New(KindNotFound, CodeProfileNotFound, "profile not found")
	ErrAccountInactive         = New(KindForbidden, CodeAccountInactive, "account is not active")
	ErrUnauthorized            = New(KindForbidden, CodeUnauthorized, "not allowed")
	ErrNotFound                = NotFound("resource not found")
	ErrVeterinarianUnavailable = New(KindValidation, CodeVeterinarianUnavailable, "veterinarian is not accepting appointments")
	ErrSlotTaken               = New(KindConflict, CodeSlotTaken, "this time slot is already booked")
	ErrDailyLimitExceeded      = New(KindConflict, CodeDailyLimitExceeded, "daily appointment limit reached")
	ErrCannotCancel            = New(KindConflict, CodeCannotCancel, "appointment cannot be cancelled")
	ErrInvalidTransition       = New(KindConflict, CodeInvalidTransition, "status transition not allowed")
	ErrRemarksRequired         = New(KindValidation, CodeRemarksRequired, "remarks are required to reject an application")
	ErrReviewerRequired        = New(KindValidation, CodeReviewerRequired, "reviewer is required")
	ErrAlreadyReviewed         = New(KindConflict, CodeAlreadyReviewed, "application has already been reviewed")
	ErrSaveTimeout             = New(KindTimeout, CodeSaveTimeout, "save did not complete in time")
)

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err or CodeInternal when err is not an *Error.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}
