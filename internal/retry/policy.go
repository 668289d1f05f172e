// Package retry wraps fallible external calls in a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Policy describes how many times a call is attempted and how long to wait between attempts.
type Policy struct {
	Name        string
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64

	// Sleep waits d or until ctx is done. Nil uses a timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// ClassifyPolicy is used by the classification gateway.
func ClassifyPolicy() Policy {
	return Policy{Name: "classify", MaxAttempts: 3, Initial: 2 * time.Second, Max: 10 * time.Second, Multiplier: 2}
}

// ExtractPolicy is used by the extraction gateway.
func ExtractPolicy() Policy {
	return Policy{Name: "extract", MaxAttempts: 3, Initial: 4 * time.Second, Max: 10 * time.Second, Multiplier: 2}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns a permanent error, ctx ends, or
// MaxAttempts is reached. The last error is wrapped in the returned error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if IsPermanent(err) {
			return zero, fmt.Errorf("%s: permanent failure on attempt %d: %w", p.Name, attempt, err)
		}
		if attempt == attempts {
			break
		}
		wait := p.Backoff(attempt)
		logger.Warn("retry.backoff",
			"op", p.Name, "attempt", attempt, "max_attempts", attempts,
			"wait_ms", wait.Milliseconds(), "error", err,
		)
		if serr := sleep(ctx, wait); serr != nil {
			return zero, fmt.Errorf("%s: cancelled during backoff: %w", p.Name, errors.Join(serr, lastErr))
		}
	}
	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", p.Name, attempts, lastErr)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err should stop retries: explicitly marked errors,
// context cancellation, and gRPC statuses that a retry cannot fix.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated,
			codes.NotFound, codes.FailedPrecondition:
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
