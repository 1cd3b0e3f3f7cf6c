// Package apperr defines the error kinds the API can report.  Every
// failure that reaches the HTTP layer is (or is converted to) an *Error,
// whose Kind decides the response status.  The central echo error
// handler serializes it as {success:false, message}.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindNoSubscription
	KindSubscriptionRequired
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindValidation:           "validation",
	KindConflict:             "conflict",
	KindUnauthorized:         "unauthorized",
	KindForbidden:            "forbidden",
	KindNotFound:             "not_found",
	KindNoSubscription:       "no_subscription",
	KindSubscriptionRequired: "subscription_required",
	KindRateLimited:          "rate_limited",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindNoSubscription:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindSubscriptionRequired:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Reasons attached to Unauthorized token failures.
const (
	ReasonTokenInvalid = "token_invalid"
	ReasonTokenExpired = "token_expired"
)

// Error is the application error.  Message is safe to show to clients;
// Err carries the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Field   string
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind (and reason when the target sets one),
// so callers can write errors.Is(err, apperr.NotFound("")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int { return e.Kind.Status() }

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Validation reports bad or missing input for field.
func Validation(field, reason string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason, Message: reason}
}

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func NoSubscription(format string, args ...any) *Error {
	return newf(KindNoSubscription, format, args...)
}

func SubscriptionRequired(format string, args ...any) *Error {
	return newf(KindSubscriptionRequired, format, args...)
}

func RateLimited(format string, args ...any) *Error { return newf(KindRateLimited, format, args...) }

// Internal wraps an unexpected failure.  The message is what the client
// sees; cause is only logged.
func Internal(cause error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// TokenError builds an Unauthorized error tagged with a token reason.
func TokenError(reason, message string, cause error) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Message: message, Err: cause}
}

// KindOf returns the kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns err as *Error, wrapping unknown errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "Internal server error")
}
