package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the single failure shape for every backend call.
// Status is 0 when the request never got an HTTP response.
type APIError struct {
	Status  int
	Message string
	Body    string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is an APIError carrying the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsNetwork reports a request that never got an HTTP response.
func IsNetwork(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// Message extracts a user-facing message from any error, falling back when
// the error is not an APIError.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func newNetworkError(err error) *APIError {
	return &APIError{Message: "network error", Err: err}
}

// newStatusError builds the error for a non-2xx response. A JSON body's
// "message" (string or list of strings) wins, then "error", then the
// status text.
func newStatusError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}

	var payload map[string]interface{}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Message = messageField(payload["message"])
		if apiErr.Message == "" {
			apiErr.Message = messageField(payload["error"])
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = "Unexpected error"
	}
	return apiErr
}

func messageField(v interface{}) string {
	switch m := v.(type) {
	case string:
		return strings.TrimSpace(m)
	case []interface{}:
		for _, item := range m {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
