// Package retry wraps operations with bounded exponential backoff.
//
// Only transient upstream failures are retried: HTTP status 500 or 503, or
// an "overloaded" marker in the error message. Everything else is terminal
// and propagates unchanged.
package retry

import (
	"context"
	"strings"
	"time"

	"github.com/basharArif/prompt-architect-demo/ai/provider"
	"github.com/basharArif/prompt-architect-demo/errors"
)

// Policy configures the backoff loop.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the sleep before the first retry; each subsequent
	// delay is multiplied by Multiplier, capped at MaxDelay.
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy matches the documented backoff contract: 3 retries starting
// at 1s, doubling, capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

// IsRetryable classifies an error as transient. Retryable errors carry HTTP
// status 500 or 503, or mention an overloaded upstream.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 500 || apiErr.Status == 503 {
			return true
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), "overloaded")
}

// Do runs op, retrying transient failures with exponential backoff.
// On success it returns op's value. Terminal failures, and transient
// failures once retries are exhausted, return the original error unchanged.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return doWithSleep(ctx, policy, op, sleepContext)
}

// doWithSleep is Do with an injectable sleeper for tests.
// A bounded loop rather than recursion keeps the call stack flat no matter
// how many retries are configured.
func doWithSleep[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), sleep func(context.Context, time.Duration) error) (T, error) {
	var zero T

	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}

	delay := policy.InitialDelay
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) || attempt >= policy.MaxRetries {
			// Propagate the original error: status and message intact.
			return zero, err
		}

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
