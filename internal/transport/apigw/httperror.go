package apigw

import (
	"errors"
	"fmt"
	"time"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// Status codes used by the API surface.
const (
	StatusBadRequest           = 400
	StatusUnauthorized         = 401
	StatusForbidden            = 403
	StatusNotFound             = 404
	StatusConflict             = 409
	StatusUnsupportedMediaType = 415
	StatusUnprocessableEntity  = 422
	StatusInternalServerError  = 500
)

var statusReasons = map[int]string{
	StatusBadRequest:           "Bad request",
	StatusUnauthorized:         "Unauthorized",
	StatusForbidden:            "Forbidden",
	StatusNotFound:             "Not found",
	StatusConflict:             "Conflict",
	StatusUnsupportedMediaType: "Unsupported media type",
	StatusUnprocessableEntity:  "Unprocessable entity",
	StatusInternalServerError:  "Internal server error",
}

var domainCodeToStatus = map[string]int{
	domain.CodeThingAlreadyExists: StatusConflict,
	domain.CodeThingNotFound:      StatusNotFound,
	domain.CodeThingUnprocessable: StatusUnprocessableEntity,
	domain.CodeForbidden:          StatusForbidden,
}

// HTTPError is the transport-facing error: what ultimately reaches the
// caller as the response body. Method and Resource are stamped by the
// gateway at response-formatting time.
type HTTPError struct {
	StatusCode   int
	StatusReason string
	Message      string
	Causes       []string
	Timestamp    time.Time
	Method       string
	Resource     string
}

// NewHTTPError builds an HTTPError stamped with the current UTC instant.
// Causes is never nil.
func NewHTTPError(statusCode int, message string, causes ...string) *HTTPError {
	if causes == nil {
		causes = []string{}
	}
	return &HTTPError{
		StatusCode:   statusCode,
		StatusReason: statusReasons[statusCode],
		Message:      message,
		Causes:       causes,
		Timestamp:    jsontime.Now(),
	}
}

func (e *HTTPError) Error() string { return e.Message }

// Wrap converts any error into an HTTPError. Domain errors map their code
// through the fixed table, defaulting to 500 for unknown codes and keeping
// message, causes and timestamp. Everything else becomes an opaque 500 with
// the error's text as message.
func Wrap(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		statusCode, ok := domainCodeToStatus[domainErr.Code]
		if !ok {
			statusCode = StatusInternalServerError
		}
		wrapped := NewHTTPError(statusCode, domainErr.Message, domainErr.Causes...)
		wrapped.Timestamp = domainErr.Timestamp
		return wrapped
	}
	return NewHTTPError(StatusInternalServerError, fmt.Sprintf("%v", err))
}

// body renders the error's full field set as the response body tree.
func (e *HTTPError) body() map[string]any {
	return map[string]any{
		"statusCode":   e.StatusCode,
		"statusReason": e.StatusReason,
		"message":      e.Message,
		"causes":       e.Causes,
		"timestamp":    e.Timestamp,
		"method":       e.Method,
		"resource":     e.Resource,
	}
}
