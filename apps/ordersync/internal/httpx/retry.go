package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// FatalError marks a call whose retry budget is exhausted. Callers distinguish
// it from a transient failure with errors.As or IsFatal.
type FatalError struct {
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries an exhausted retry budget.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// StatusError is an HTTP response outside the 2xx range, classified for the
// retry loop: 429 and 5xx are transient, other 4xx are permanent.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transient reports whether err is worth retrying. Network errors, 429 and
// 5xx responses are transient; everything else surfaces immediately.
func Transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// Transport-level failures wrap url.Error around net errors; treat any
	// unwrapped connection failure as transient too.
	return errors.Is(err, context.DeadlineExceeded)
}

// Retry executes fallible remote calls with a bounded linear backoff. The
// wrapped operation must be safely repeatable (pure reads, upserts).
type Retry struct {
	MaxRetries int
	BaseDelay  time.Duration

	sleep func(time.Duration)
}

// NewRetry creates a policy allowing maxRetries retries after the initial
// attempt, waiting baseDelay*k before retry k.
func NewRetry(maxRetries int, baseDelay time.Duration) Retry {
	return Retry{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		sleep:      time.Sleep,
	}
}

// Do runs op up to MaxRetries+1 times. Transient errors are retried with a
// non-decreasing delay; permanent errors and context cancellation surface
// immediately. On exhaustion the last failure is wrapped in a FatalError.
func (r Retry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	sleep := r.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	attempts := r.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Transient(lastErr) {
			return lastErr
		}
		if attempt < attempts {
			sleep(r.BaseDelay * time.Duration(attempt))
		}
	}

	return &FatalError{Attempts: attempts, Err: lastErr}
}
