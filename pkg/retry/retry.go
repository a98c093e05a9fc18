package retry

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxAttempts is the total number of handler invocations (default: 3)
	MaxAttempts int
	// Interval is the base backoff interval; the wait before attempt n+1 is
	// Interval × n, i.e. linear backoff (default: 200ms)
	Interval time.Duration
}

// DefaultConfig returns default retry configuration.
// Backoff sequence with defaults: 200ms, 400ms.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Interval:    200 * time.Millisecond,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError wraps an error that must not be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks an error as permanent (not retryable)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result contains the outcome of a retried operation
type Result struct {
	// Err is the final error (nil on success)
	Err error
	// Attempts is the number of invocations made
	Attempts int
	// LastError is the error from the last attempt
	LastError error
}

// Retrier retries an operation with linear backoff
type Retrier struct {
	config *Config
	// sleep is swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Retrier with the given configuration
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Interval <= 0 {
		config.Interval = 200 * time.Millisecond
	}
	return &Retrier{
		config: config,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do executes the operation, retrying failures up to MaxAttempts total
// invocations with linear backoff between attempts.
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	result := &Result{}
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			result.LastError = lastErr
			return result
		}

		result.Attempts = attempt
		err := op(ctx)
		if err == nil {
			return result
		}
		lastErr = err

		var permErr *PermanentError
		if errors.As(err, &permErr) {
			result.Err = permErr.Err
			result.LastError = permErr.Err
			return result
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		if err := r.sleep(ctx, r.config.Interval*time.Duration(attempt)); err != nil {
			result.Err = ErrContextCanceled
			result.LastError = lastErr
			return result
		}
	}

	result.Err = ErrMaxRetriesExceeded
	result.LastError = lastErr
	return result
}

// Do is a convenience function that creates a retrier and executes the operation
func Do(ctx context.Context, config *Config, op Operation) *Result {
	return New(config).Do(ctx, op)
}
