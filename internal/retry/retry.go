// Package retry runs an operation a bounded number of times with exponential
// backoff between failed attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultAttempts is the number of tries before a lookup gives up.
	DefaultAttempts = 3

	// DefaultBackoff is the base wait; attempt n sleeps DefaultBackoff * 2^n.
	DefaultBackoff = 300 * time.Millisecond
)

var (
	// ErrNotFound marks an operation that completed but found nothing.
	// It ends the retry loop immediately with Found=false and no error.
	ErrNotFound = errors.New("not found")

	// ErrExhausted wraps the last error once every attempt has failed.
	ErrExhausted = errors.New("retries exhausted")
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	Sleep    SleepFunc
}

// Default returns the policy used for repository lookups.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts, Backoff: DefaultBackoff}
}

// Result is the outcome of Do. Err is non-nil only when resolution failed;
// a clean "nothing there" is Found=false with Err=nil.
type Result[T any] struct {
	Value    T
	Found    bool
	Err      error
	Attempts int
}

// OK reports whether a value was resolved.
func (r Result[T]) OK() bool {
	return r.Found && r.Err == nil
}

type noBackoffError struct {
	err error
}

func (e *noBackoffError) Error() string { return e.err.Error() }
func (e *noBackoffError) Unwrap() error { return e.err }

// NoBackoff marks err as a failed attempt that should be retried without
// sleeping first. Upstream responses with a bad status are reported this way.
func NoBackoff(err error) error {
	if err == nil {
		return nil
	}
	return &noBackoffError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as final: Do stops at once and reports it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, reports ErrNotFound, returns a Permanent
// error, the policy runs out of attempts, or ctx is cancelled. A plain error
// sleeps Backoff*2^attempt before the next attempt; an error wrapped with
// NoBackoff does not.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) Result[T] {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var (
		res     Result[T]
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		res.Attempts = attempt + 1

		v, err := op(ctx)
		if err == nil {
			res.Value = v
			res.Found = true
			return res
		}
		if errors.Is(err, ErrNotFound) {
			return res
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			res.Err = pe.err
			return res
		}
		if ctx.Err() != nil {
			break
		}

		var nb *noBackoffError
		if errors.As(err, &nb) || attempt == attempts-1 {
			continue
		}
		if serr := sleep(ctx, p.Backoff*(1<<uint(attempt))); serr != nil {
			break
		}
	}

	res.Err = fmt.Errorf("%w after %d attempts: %w", ErrExhausted, res.Attempts, lastErr)
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
