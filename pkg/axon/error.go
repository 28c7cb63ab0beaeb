package axon

import (
	"errors"
	"fmt"
	"net/http"

	axonerrors "github.com/toyz/axonroute/internal/errors"
)

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	Code     int         `json:"code"`
	Message  interface{} `json:"message"`
	Internal error       `json:"-"` // Stores the error returned by an external dependency
}

// Error makes HTTPError implement the error interface
func (he *HTTPError) Error() string {
	if he.Internal != nil {
		return he.Internal.Error()
	}
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprint(he.Message)
}

// Unwrap exposes the internal error
func (he *HTTPError) Unwrap() error {
	return he.Internal
}

// NewHTTPError creates a new HTTPError instance
func NewHTTPError(code int, message ...interface{}) *HTTPError {
	he := &HTTPError{Code: code}
	if len(message) > 0 {
		he.Message = message[0]
	} else {
		he.Message = StatusText(code)
	}
	if len(message) > 1 {
		if err, ok := message[1].(error); ok {
			he.Internal = err
		}
	}
	return he
}

// StatusText returns a text for the HTTP status code
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

// HttpError represents an HTTP error with a specific status code and message
type HttpError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NewHttpError creates a new HttpError with the given status code and message
func NewHttpError(statusCode int, message string) *HttpError {
	return &HttpError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewHttpErrorWithDetails creates a new HttpError with additional details
func NewHttpErrorWithDetails(statusCode int, message string, details any) *HttpError {
	return &HttpError{
		StatusCode: statusCode,
		Message:    message,
		Details:    details,
	}
}

// Common HTTP error constructors for convenience

// ErrBadRequest creates a 400 Bad Request error
func ErrBadRequest(message string) *HttpError {
	return NewHttpError(http.StatusBadRequest, message)
}

// ErrUnauthorized creates a 401 Unauthorized error
func ErrUnauthorized(message string) *HttpError {
	return NewHttpError(http.StatusUnauthorized, message)
}

// ErrForbidden creates a 403 Forbidden error
func ErrForbidden(message string) *HttpError {
	return NewHttpError(http.StatusForbidden, message)
}

// ErrNotFound creates a 404 Not Found error
func ErrNotFound(message string) *HttpError {
	return NewHttpError(http.StatusNotFound, message)
}

// ErrConflict creates a 409 Conflict error
func ErrConflict(message string) *HttpError {
	return NewHttpError(http.StatusConflict, message)
}

// ErrTooManyRequests creates a 429 Too Many Requests error
func ErrTooManyRequests(message string) *HttpError {
	return NewHttpError(http.StatusTooManyRequests, message)
}

// ErrInternalServerError creates a 500 Internal Server Error
func ErrInternalServerError(message string) *HttpError {
	return NewHttpError(http.StatusInternalServerError, message)
}

// ErrorStatus maps an error to the status code it should be answered with.
// HTTPError, HttpError and BaseError status hints are honoured; anything else is a 500.
func ErrorStatus(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var hte *HttpError
	if errors.As(err, &hte) {
		return hte.StatusCode
	}
	var be *axonerrors.BaseError
	if errors.As(err, &be) && be.StatusCode != 0 {
		return be.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorBody builds the JSON payload written for err
func ErrorBody(err error) interface{} {
	var he *HTTPError
	if errors.As(err, &he) {
		return map[string]interface{}{"error": he.Message}
	}
	var hte *HttpError
	if errors.As(err, &hte) {
		return hte
	}
	code := ErrorStatus(err)
	if code >= http.StatusInternalServerError {
		return map[string]interface{}{"error": StatusText(code)}
	}
	return map[string]interface{}{"error": err.Error()}
}

// DefaultErrorHandler writes err as JSON unless the response is already committed
func DefaultErrorHandler(err error, ctx RequestContext) {
	if err == nil || ctx.Response().Written() {
		return
	}
	_ = ctx.Response().JSON(ErrorStatus(err), ErrorBody(err))
}
