// Package apperror defines the typed business outcomes returned by the
// ticketing core. They are expected results, not failures: handlers render
// them with their code instead of a generic 500.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a business outcome.
type Code string

const (
	CodeNotFound              Code = "NOT_FOUND"
	CodeSoldOut               Code = "SOLD_OUT"
	CodeAlreadyBooked         Code = "ALREADY_BOOKED"
	CodeRestrictedDomain      Code = "RESTRICTED_DOMAIN"
	CodeInvalidCode           Code = "INVALID_CODE"
	CodeTeamFull              Code = "TEAM_FULL"
	CodeAlreadyUsed           Code = "ALREADY_USED"
	CodeCancelled             Code = "CANCELLED"
	CodeTransientConflict     Code = "TRANSIENT_CONFLICT"
	CodeAlreadyReviewed       Code = "ALREADY_REVIEWED"
	CodeRegistrationClosed    Code = "REGISTRATION_CLOSED"
	CodeParticipationMismatch Code = "PARTICIPATION_MISMATCH"
	CodeNotCancellable        Code = "NOT_CANCELLABLE"
	CodeTeamNotEmpty          Code = "TEAM_NOT_EMPTY"
	CodeValidation            Code = "VALIDATION"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeInternal              Code = "INTERNAL"
)

// AppError is a business outcome with the HTTP status it maps to.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches any AppError with the same code, so a sentinel compares equal
// to copies produced by WithMessage.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	c := *e
	c.Message = msg
	return &c
}

// New creates a business error.
func New(code Code, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

// Validation creates a VALIDATION error for malformed input.
func Validation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

var (
	ErrNotFound              = New(CodeNotFound, http.StatusNotFound, "not found")
	ErrSoldOut               = New(CodeSoldOut, http.StatusConflict, "event is sold out")
	ErrAlreadyBooked         = New(CodeAlreadyBooked, http.StatusConflict, "you are already registered for this event")
	ErrRestrictedDomain      = New(CodeRestrictedDomain, http.StatusForbidden, "this event is restricted to campus accounts")
	ErrInvalidCode           = New(CodeInvalidCode, http.StatusNotFound, "no team matches this code")
	ErrTeamFull              = New(CodeTeamFull, http.StatusConflict, "team is full")
	ErrTransientConflict     = New(CodeTransientConflict, http.StatusServiceUnavailable, "too many concurrent requests, please retry")
	ErrAlreadyReviewed       = New(CodeAlreadyReviewed, http.StatusConflict, "you have already reviewed this event")
	ErrRegistrationClosed    = New(CodeRegistrationClosed, http.StatusConflict, "registration is closed for this event")
	ErrParticipationMismatch = New(CodeParticipationMismatch, http.StatusBadRequest, "event does not accept this kind of registration")
	ErrNotCancellable        = New(CodeNotCancellable, http.StatusConflict, "only confirmed tickets can be cancelled")
	ErrTeamNotEmpty          = New(CodeTeamNotEmpty, http.StatusConflict, "team leader cannot cancel while members remain")
	ErrUnauthorized          = New(CodeUnauthorized, http.StatusUnauthorized, "authentication required")
	ErrForbidden             = New(CodeForbidden, http.StatusForbidden, "not allowed")
)

// From extracts the AppError carried by err. Anything else is an
// infrastructure failure and maps to INTERNAL.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:       CodeInternal,
		Message:    "internal error",
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// IsBusiness reports whether err is an expected business outcome.
func IsBusiness(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
