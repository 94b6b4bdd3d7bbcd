package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

// CoreStatus is the machine readable code carried by every BaseError.
type CoreStatus string

const (
	StatusValidationFailed  CoreStatus = "VALIDATION_FAILED"
	StatusStoreUnavailable  CoreStatus = "STORE_UNAVAILABLE"
	StatusNotFound          CoreStatus = "NOT_FOUND"
	StatusConflict          CoreStatus = "CONFLICT"
	StatusUnauthorized      CoreStatus = "UNAUTHORIZED"
	StatusForbidden         CoreStatus = "FORBIDDEN"
	StatusTooManyRequests   CoreStatus = "TOO_MANY_REQUESTS"
	StatusCodeNotFound      CoreStatus = "CODE_NOT_FOUND"
	StatusCodeInactive      CoreStatus = "CODE_INACTIVE"
	StatusCodeExpired       CoreStatus = "CODE_EXPIRED"
	StatusLimitReached      CoreStatus = "LIMIT_REACHED"
	StatusAlreadyRedeemed   CoreStatus = "ALREADY_REDEEMED"
	StatusNoCustomers       CoreStatus = "NO_CUSTOMERS"
	StatusInsufficientCoins CoreStatus = "INSUFFICIENT_COINS"
	StatusPartialDelivery   CoreStatus = "PARTIAL_DELIVERY"
	StatusInternal          CoreStatus = "INTERNAL"
)

// HTTPStatus maps the code to the response status used by the API layer.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusValidationFailed:
		return http.StatusBadRequest
	case StatusStoreUnavailable:
		return http.StatusServiceUnavailable
	case StatusNotFound, StatusCodeNotFound:
		return http.StatusNotFound
	case StatusConflict, StatusAlreadyRedeemed:
		return http.StatusConflict
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusCodeInactive, StatusCodeExpired, StatusLimitReached, StatusNoCustomers, StatusInsufficientCoins:
		return http.StatusUnprocessableEntity
	case StatusPartialDelivery:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BaseError struct {
	Code    CoreStatus `json:"code"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) Status() CoreStatus {
	return e.Code
}

// JSON is the response body rendered by the error middleware.
func (e BaseError) JSON() interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
			"details": e.Details,
		},
	}
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func New(code CoreStatus, message string, opts ...Option) error {
	be := BaseError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func ValidationFailed(msg string, options ...Option) error {
	return New(StatusValidationFailed, msg, options...)
}

func StoreUnavailable(msg string, err error) error {
	return New(StatusStoreUnavailable, msg, WithErr(err))
}

func NotFound(msg string) error {
	return New(StatusNotFound, msg)
}

func Conflict(msg string) error {
	return New(StatusConflict, msg)
}

func Unauthorized(msg string) error {
	return New(StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(StatusForbidden, msg)
}

func Internal(msg string, err error) error {
	return New(StatusInternal, msg, WithErr(err))
}

// CodeOf returns the status of the first BaseError in err's chain, or StatusInternal.
func CodeOf(err error) CoreStatus {
	var base BaseError
	if errors.As(err, &base) {
		return base.Code
	}
	return StatusInternal
}

// Is reports whether err carries the given status.
func Is(err error, code CoreStatus) bool {
	var base BaseError
	return errors.As(err, &base) && base.Code == code
}
