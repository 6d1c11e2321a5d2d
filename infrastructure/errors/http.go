// Package errors turns failed upstream HTTP responses into typed errors.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// MinErrorStatusCode is the lowest status treated as an error.
	MinErrorStatusCode = 400
	maxErrorBodyBytes  = 64 << 10
)

// HTTPError is a non-2xx/3xx upstream response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%s): %s", e.Status, e.Message)
	}
	return "HTTP error: " + e.Status
}

// Temporary reports whether the status suggests a retry may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ParseHTTPError returns nil for successful responses and an *HTTPError otherwise.
// It reads (a bounded prefix of) the body but does not close it.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    fmt.Sprintf("read error body: %v", err),
		}
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}

	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch e := payload.Error.(type) {
		case string:
			httpErr.Message = e
		case map[string]any:
			if msg, ok := e["message"].(string); ok {
				httpErr.Message = msg
			} else if reason, ok := e["reason"].(string); ok {
				httpErr.Message = reason
			}
		}
		if httpErr.Message == "" {
			httpErr.Message = payload.Message
		}
	}
	return httpErr
}

// GetHTTPStatusCode extracts the status code from an error chain.
func GetHTTPStatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}

// IsTemporary reports whether err wraps an HTTPError with a retryable status.
func IsTemporary(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Temporary()
}
