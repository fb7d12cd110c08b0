package schema

import "fmt"

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
	}
	ErrUnauthorized = &Error{
		Type:    "access.unauthorized",
		Message: "Authentication required",
	}
	ErrForbiddenOrigin = &Error{
		Type:    "access.forbiddenOrigin",
		Message: "Requests from other origins are not allowed.",
	}
	ErrBackendUnreachable = &Error{
		Type:    "backend.unreachable",
		Message: "The fleet backend could not be reached.",
	}
)

// ErrBackend wraps an error message the fleet backend answered with
func ErrBackend(status int, message string) *Error {
	return &Error{
		Type:    "backend.error",
		Message: message,
		Details: map[string]any{
			"status": status,
		},
	}
}

// ErrUnknownResource is sent if a stream was requested for a resource that is not polled
func ErrUnknownResource(name string) *Error {
	return &Error{
		Type:    "stream.unknownResource",
		Message: fmt.Sprintf("There is no resource called '%s'.", name),
		Details: map[string]any{
			"resource": name,
		},
	}
}

// ErrorResponse represents the response structure sent by the dashboard API whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
