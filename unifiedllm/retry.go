package unifiedllm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxRetries        int     // total retry attempts (not counting initial)
	BaseDelay         float64 // initial delay in seconds
	MaxDelay          float64 // maximum delay between retries
	BackoffMultiplier float64 // exponential backoff factor
	Jitter            bool
	// OnRetry is called before each retry with the 1-indexed attempt number.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns a policy with no retries. Callers opt in by
// raising MaxRetries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        0,
		BaseDelay:         1.0,
		MaxDelay:          60.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// Delay calculates the backoff for attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.BackoffMultiplier, float64(attempt)), p.MaxDelay)
	if p.Jitter {
		// +/- 50%
		delay *= 0.5 + rand.Float64()
	}
	return seconds(delay)
}

// retryHinter is implemented by provider errors that may carry the server's
// Retry-After value.
type retryHinter interface {
	retryAfter() *float64
}

func (e *ProviderError) retryAfter() *float64 { return e.RetryAfter }

// next returns the wait before retrying err. A server-provided Retry-After
// replaces the backoff; one beyond MaxDelay means the error is returned
// instead.
func (p RetryPolicy) next(attempt int, err error) (time.Duration, bool) {
	var hinted retryHinter
	if errors.As(err, &hinted) {
		if after := hinted.retryAfter(); after != nil {
			wait := seconds(*after)
			if wait > seconds(p.MaxDelay) {
				return 0, false
			}
			return wait, true
		}
	}
	return p.Delay(attempt), true
}

// Retry executes fn with the configured retry policy.
// Only retryable errors are retried.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= policy.MaxRetries || !IsRetryable(err) {
			return zero, err
		}
		delay, ok := policy.next(attempt, err)
		if !ok {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-timer.C:
		}
	}
}

// RetryMiddleware retries failed Complete calls according to policy.
func RetryMiddleware(policy RetryPolicy) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
			return next(ctx, req)
		})
	}
}
