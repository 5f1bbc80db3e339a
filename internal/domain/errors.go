package domain

import (
	"time"

	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// Business error codes. The transport layer maps these to HTTP status codes
// without leaking infrastructure details.
const (
	CodeThingNotFound       = "THING_NOT_FOUND"
	CodeThingAlreadyExists  = "THING_ALREADY_EXISTS"
	CodeThingUnprocessable  = "THING_UNPROCESSABLE"
	CodeForbidden           = "FORBIDDEN"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Error is a business-rule failure. It carries a code, a human-readable
// message, zero or more cause strings and its creation instant.
type Error struct {
	Code      string
	Message   string
	Causes    []string
	Timestamp time.Time
}

// NewError builds a domain error stamped with the current UTC instant.
// Causes is never nil.
func NewError(code, message string, causes ...string) *Error {
	if causes == nil {
		causes = []string{}
	}
	return &Error{
		Code:      code,
		Message:   message,
		Causes:    causes,
		Timestamp: jsontime.Now(),
	}
}

func (e *Error) Error() string { return e.Message }
