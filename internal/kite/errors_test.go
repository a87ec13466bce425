package kite

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/valyala/fasthttp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		errorType string
		message   string
		want      ErrorCategory
	}{
		{"token exception", 403, "TokenException", "Invalid access token", CategoryAuth},
		{"user exception", 403, "UserException", "User not enabled", CategoryAuth},
		{"permission exception", 403, "PermissionException", "No access", CategoryAuth},
		{"network exception", 503, "NetworkException", "Gateway busy", CategoryThrottle},
		{"http 429", 429, "", "slow down", CategoryThrottle},
		{"invalid token message", 400, "", "Invalid token supplied", CategoryAuth},
		{"token required message", 400, "", "Token required", CategoryAuth},
		{"bad credentials message", 400, "", "Invalid API credentials", CategoryAuth},
		{"general exception", 500, "GeneralException", "Something broke", CategoryUpstream},
		{"input exception", 400, "InputException", "Bad quantity", CategoryUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.status, tt.errorType, tt.message); got != tt.want {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	auth := newAPIError(403, "TokenException", "Invalid access token")
	if !IsAuthError(auth) {
		t.Error("TokenException not recognized as auth error")
	}
	if !IsAuthError(fmt.Errorf("request failed: %w", auth)) {
		t.Error("wrapped auth error not recognized")
	}
	if IsAuthError(newAPIError(500, "GeneralException", "boom")) {
		t.Error("upstream error misclassified as auth")
	}
	if IsAuthError(errors.New("plain error")) {
		t.Error("plain error misclassified as auth")
	}
	if IsAuthError(nil) {
		t.Error("nil misclassified as auth")
	}
}

func TestIsNetworkError(t *testing.T) {
	networkErrs := []error{
		context.DeadlineExceeded,
		fasthttp.ErrTimeout,
		fasthttp.ErrDialTimeout,
		fasthttp.ErrConnectionClosed,
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		&net.OpError{Op: "dial", Err: errors.New("no route to host")},
		fmt.Errorf("profile check: %w", context.DeadlineExceeded),
	}
	for _, err := range networkErrs {
		if !IsNetworkError(err) {
			t.Errorf("IsNetworkError(%v) = false, want true", err)
		}
	}

	if IsNetworkError(nil) {
		t.Error("nil reported as network error")
	}
	if IsNetworkError(errors.New("validation blew up")) {
		t.Error("plain error reported as network error")
	}
	// Structured API failures are never transport failures, even when
	// an operating system error sits somewhere in the chain.
	if IsNetworkError(newAPIError(503, "NetworkException", "exchange down")) {
		t.Error("structured API error reported as network error")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	withType := newAPIError(403, "TokenException", "Invalid access token")
	if withType.Error() != "kite: TokenException: Invalid access token" {
		t.Errorf("Error() = %q", withType.Error())
	}
	withoutType := newAPIError(502, "", "bad gateway")
	if withoutType.Error() != "kite: http 502: bad gateway" {
		t.Errorf("Error() = %q", withoutType.Error())
	}
}
