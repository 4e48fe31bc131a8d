package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks a backend round trip that failed below the protocol
// level, such as a refused connection or a timeout.
var ErrNetwork = errors.New("network error")

// transientError marks an error worth another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Retryable marks err as transient. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable reports whether err, or anything it wraps, was marked by
// [Retryable].
func IsRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

const retryAttempts = 3

// retryDelay is the wait after the first failed attempt; it doubles after
// each further one. Tests shorten it.
var retryDelay = 200 * time.Millisecond

// RetryWithBackoff calls fn until it succeeds, returns an error not marked
// by [Retryable], or has been tried retryAttempts times. Cancelling ctx
// during a wait returns ctx.Err().
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
