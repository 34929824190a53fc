// Package wait implements the bounded wait: a condition is re-checked against
// the live page until it holds or the timeout elapses. It is the only place the
// automation layer suspends; nothing else sleeps.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Defaults used when Options fields are zero.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// Options bound a single wait.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Interval > o.Timeout {
		o.Interval = o.Timeout
	}
	return o
}

// WithTimeout returns a copy of o with a different timeout.
func (o Options) WithTimeout(d time.Duration) Options {
	o.Timeout = d
	return o
}

// TimeoutError is returned when a condition never held.
type TimeoutError struct {
	What     string
	Timeout  time.Duration
	Attempts int
	Observed string
	LastErr  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s (%d attempts)", e.Timeout, e.What, e.Attempts)
	if e.Observed != "" {
		msg += fmt.Sprintf(", last observed %q", e.Observed)
	}
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks a condition error as final: polling stops and the error is
// returned unchanged instead of being retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Func is one check of a condition. It returns the value it observed, whether
// the condition holds, and an error. Errors are treated as transient unless
// wrapped with Permanent.
type Func[T any] func(ctx context.Context) (T, bool, error)

// Poll re-runs check until it reports ok, returning the last observed value.
func Poll[T any](ctx context.Context, opts Options, what string, check Func[T]) (T, error) {
	opts = opts.withDefaults()

	deadlineCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)

	var (
		last     T
		lastErr  error
		attempts int
		seen     bool
	)
	for {
		if err := limiter.Wait(deadlineCtx); err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, &TimeoutError{
				What:     what,
				Timeout:  opts.Timeout,
				Attempts: attempts,
				Observed: observed(last, seen),
				LastErr:  lastErr,
			}
		}

		attempts++
		value, ok, err := check(deadlineCtx)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return value, perm.err
			}
			lastErr = err
			continue
		}
		last, seen, lastErr = value, true, nil
		if ok {
			return value, nil
		}
	}
}

// Until is Poll for conditions whose observation is only used for reporting.
func Until(ctx context.Context, opts Options, what string, check func(ctx context.Context) (string, bool, error)) error {
	_, err := Poll(ctx, opts, what, Func[string](check))
	return err
}

func observed[T any](v T, seen bool) string {
	if !seen {
		return ""
	}
	return fmt.Sprint(v)
}
