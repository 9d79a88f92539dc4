package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents a classification of request failures.
// It is used for metrics and logs only; the retry policy is uniform.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCanceled represents requests aborted by their caller.
	ErrorClassCanceled ErrorClass = "canceled"
)

// APIError is returned for HTTP responses with status >= 400.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Method     string
	Path       string

	// Message is extracted from the JSON error body when present,
	// otherwise the HTTP status text
	Message string

	// Body is the raw error response body
	Body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api %s error (status %d) %s %s: %s",
		e.Class, e.StatusCode, e.Method, e.Path, e.Message)
}

// IsCanceled reports whether err represents an intentional abort
// rather than a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classifyTransportError categorizes an error returned by the HTTP transport.
func classifyTransportError(err error) ErrorClass {
	if IsCanceled(err) {
		return ErrorClassCanceled
	}
	return ErrorClassNetwork
}

// errorMessage extracts a human-readable message from a JSON error body.
// Backends answer with {"message": ...}, {"error": ...} or problem+json
// {"title": ..., "detail": ...}.
func errorMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	for _, key := range []string{"message", "Message", "error", "Error", "detail", "title"} {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
