package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{413, false},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{529, true},
		{418, true},
	}

	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "test error", "anthropic", "", nil)
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: IsRetryable = %v, want %v (%T)", tt.status, got, tt.retryable, err)
		}
	}
}

func TestErrorFromStatusCodeTypes(t *testing.T) {
	retryAfter := 2.5
	err := ErrorFromStatusCode(429, "slow down", "anthropic", "rate_limit_error", &retryAfter)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	if rl.RetryAfter == nil || *rl.RetryAfter != 2.5 {
		t.Errorf("expected RetryAfter 2.5, got %v", rl.RetryAfter)
	}
	if rl.ErrorCode != "rate_limit_error" {
		t.Errorf("expected error code, got %q", rl.ErrorCode)
	}

	var server *ServerError
	if !errors.As(ErrorFromStatusCode(529, "overloaded", "anthropic", "overloaded_error", nil), &server) {
		t.Error("expected 529 to map to ServerError")
	}
	var auth *AuthenticationError
	if !errors.As(ErrorFromStatusCode(401, "bad key", "anthropic", "", nil), &auth) {
		t.Error("expected 401 to map to AuthenticationError")
	}
}

func TestTransportError(t *testing.T) {
	var timeout *RequestTimeoutError
	if !errors.As(TransportError(fmt.Errorf("dial: %w", context.DeadlineExceeded)), &timeout) {
		t.Error("expected deadline to map to RequestTimeoutError")
	}
	var abort *AbortError
	if !errors.As(TransportError(context.Canceled), &abort) {
		t.Error("expected cancel to map to AbortError")
	}
	var network *NetworkError
	if !errors.As(TransportError(errors.New("connection refused")), &network) {
		t.Error("expected other failures to map to NetworkError")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthenticationError{}, false},
		{"access denied", &AccessDeniedError{}, false},
		{"not found", &NotFoundError{}, false},
		{"invalid request", &InvalidRequestError{}, false},
		{"context length", &ContextLengthError{}, false},
		{"content filter", &ContentFilterError{}, false},
		{"config error", &ConfigurationError{}, false},
		{"abort", &AbortError{}, false},
		{"rate limit", &RateLimitError{ProviderError: ProviderError{Retryable: true}}, true},
		{"server error", &ServerError{ProviderError: ProviderError{Retryable: true}}, true},
		{"network error", &NetworkError{}, true},
		{"timeout error", &RequestTimeoutError{}, true},
		{"wrapped auth", fmt.Errorf("call: %w", &AuthenticationError{}), false},
		{"provider not retryable", &ProviderError{Retryable: false}, false},
		{"unknown error", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsRetryable(tt.err)
			if got != tt.retryable {
				t.Errorf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &SDKError{Message: "wrapper", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected SDKError to unwrap to its cause")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		SDKError:   SDKError{Message: "rate limit exceeded"},
		Provider:   "anthropic",
		StatusCode: 429,
		ErrorCode:  "rate_limit_error",
		Retryable:  true,
	}
	msg := err.Error()
	for _, want := range []string{"anthropic", "rate limit", "rate_limit_error", "429"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
