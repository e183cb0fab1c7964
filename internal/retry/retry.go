// Package retry reruns optimistic-concurrency operations with exponential backoff.
//
// Schedule with the defaults: 0, 10ms, 20ms, 40ms, 80ms, each delay varied by up to 30%.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cx-tal-miterani/flight-booking-engine/internal/errs"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// Func is one attempt
type Func func(ctx context.Context) error

type config struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryable    func(error) bool
}

// Option configures Do
type Option func(*config) error

func (c *config) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.baseDelay
	exp.RandomizationFactor = c.jitterFactor
	exp.Multiplier = 2
	exp.MaxInterval = time.Minute
	if c.baseDelay > exp.MaxInterval {
		exp.MaxInterval = c.baseDelay
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, returns a non-retryable error, or runs out of attempts.
// Without If, errors of kind Conflict and Unavailable are retried. The last error is returned.
func Do(ctx context.Context, fn Func, options ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		retryable:    errs.IsRetryable,
	}
	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	err := backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !cfg.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, cfg.backOff(ctx))

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return errs.Wrap(err, "retry abandoned")
	}
	return err
}

// WithMaxAttempts bounds the number of calls to fn, the first one included
func WithMaxAttempts(attempts int) Option {
	return func(c *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the delay before the first retry; later delays double it
func WithBaseDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = delay
		return nil
	}
}

// WithJitterFactor varies each wait by up to factor × delay either way
func WithJitterFactor(factor float64) Option {
	return func(c *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = factor
		return nil
	}
}

// If replaces the retryable predicate
func If(retryable func(error) bool) Option {
	return func(c *config) error {
		c.retryable = retryable
		return nil
	}
}
