// Package apperr defines the error kinds returned by the membership and chat
// services. Every rejected operation carries exactly one kind so callers can
// tell "invite code not found" from "group is full" from "already a member".
//
// Kinds are sentinels; use errors.Is(err, apperr.ErrGroupFull) to test.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyMember  = errors.New("already a member")
	ErrGroupFull      = errors.New("group is full")
	ErrForbidden      = errors.New("forbidden")
	ErrPersistence    = errors.New("persistence failure")
	ErrFanoutDelivery = errors.New("fan-out delivery failed")
)

// Error pairs a kind with a caller-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches the kind sentinel, so errors.Is(err, ErrGroupFull) works.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Validation(msg string) error { return newErr(ErrValidation, msg, nil) }

func NotFound(msg string) error { return newErr(ErrNotFound, msg, nil) }

func AlreadyMember(msg string) error { return newErr(ErrAlreadyMember, msg, nil) }

func GroupFull(msg string) error { return newErr(ErrGroupFull, msg, nil) }

func Forbidden(msg string) error { return newErr(ErrForbidden, msg, nil) }

// Persistence wraps a store failure. Callers may retry these with backoff.
func Persistence(msg string, cause error) error { return newErr(ErrPersistence, msg, cause) }

// FanoutDelivery wraps a publish failure. It is logged, never surfaced to the sender.
func FanoutDelivery(msg string, cause error) error {
	return newErr(ErrFanoutDelivery, msg, cause)
}

// Retryable reports whether a caller may retry the operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// Message returns the caller-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An unexpected error occurred."
}

// Code returns a short stable identifier for the error kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrGroupFull):
		return "group_full"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrFanoutDelivery):
		return "fanout_delivery"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error kind to the API status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrGroupFull):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
