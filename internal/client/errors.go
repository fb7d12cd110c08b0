package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	messageGenericFailure = "API request failed"
	messageLoginFailure   = "Login failed"
	messageAuthRequired   = "Authentication required"
)

// ErrUnauthenticated is matched (using errors.Is) by every error caused by a 401 response.
// The session has already been ended when such an error is returned; the caller decides where
// to send the user.
var ErrUnauthenticated = errors.New("authentication required")

// Error represents an application-level failure reported by the backend
type Error struct {
	Status  int
	Message string
}

func (err *Error) Error() string {
	return err.Message
}

// Is makes 401 errors match ErrUnauthenticated
func (err *Error) Is(target error) bool {
	return target == ErrUnauthenticated && err.Status == http.StatusUnauthorized
}

// IsUnauthenticated reports whether err was caused by a 401 response
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// Message returns the message to show to the user for any error returned by the client
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// extractMessage reads the error message out of a backend error body.
// FastAPI sends 'detail' (a string, or a list of validation errors); other handlers send
// 'message' or a list of 'errors'.
func extractMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			return detail
		}
		var validation []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &validation); err == nil {
			msgs := make([]string, 0, len(validation))
			for _, item := range validation {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	for _, item := range payload.Errors {
		if item.Message != "" {
			return item.Message
		}
	}
	return ""
}
