package kite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/valyala/fasthttp"
)

// ErrorCategory buckets structured Kite API failures so callers never
// have to match upstream message strings themselves.
type ErrorCategory string

const (
	// CategoryAuth covers invalid/expired tokens and bad credentials.
	CategoryAuth ErrorCategory = "auth"
	// CategoryThrottle covers rate limiting.
	CategoryThrottle ErrorCategory = "throttle"
	// CategoryUpstream covers every other structured API error.
	CategoryUpstream ErrorCategory = "upstream"
)

// APIError is a structured error payload returned by the Kite REST API.
type APIError struct {
	Status    int
	ErrorType string
	Message   string
	Category  ErrorCategory
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("kite: %s: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("kite: http %d: %s", e.Status, e.Message)
}

// newAPIError classifies a structured failure. Classification relies on
// the documented error_type field first; the message substrings below
// are a narrow shim for older payloads that only carry a message.
func newAPIError(status int, errorType, message string) *APIError {
	return &APIError{
		Status:    status,
		ErrorType: errorType,
		Message:   message,
		Category:  classify(status, errorType, message),
	}
}

func classify(status int, errorType, message string) ErrorCategory {
	switch errorType {
	case "TokenException", "UserException", "PermissionException":
		return CategoryAuth
	case "NetworkException":
		return CategoryThrottle
	}
	if status == fasthttp.StatusTooManyRequests {
		return CategoryThrottle
	}
	for _, marker := range []string{"Invalid token", "Token required", "Invalid API credentials"} {
		if strings.Contains(message, marker) {
			return CategoryAuth
		}
	}
	return CategoryUpstream
}

// IsAuthError reports whether err is a structured auth rejection.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == CategoryAuth
}

// IsNetworkError reports whether err is a transport-level failure
// (timeout, refused connection, DNS) rather than a structured API error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, fasthttp.ErrTimeout) ||
		errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, fasthttp.ErrConnectionClosed) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
