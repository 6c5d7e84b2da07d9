// Package retry provides a bounded fixed-delay retry combinator over
// cenkalti/backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retried operation.
type Policy struct {
	Attempts uint
	Delay    time.Duration
}

// LookupPolicy is used for lookups against a node that may not have seen a
// transaction yet: five attempts one second apart.
func LookupPolicy() Policy {
	return Policy{Attempts: 5, Delay: time.Second}
}

// Single performs exactly one attempt.
func Single() Policy {
	return Policy{Attempts: 1}
}

// NotifyFn observes each failed attempt before the next wait.
type NotifyFn func(attempt uint, err error, next time.Duration)

type options struct {
	notify NotifyFn
}

// Option tunes a Do call.
type Option func(*options)

// WithNotify registers fn for failed attempts that will be retried.
func WithNotify(fn NotifyFn) Option {
	return func(o *options) { o.notify = fn }
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are exhausted. The last error is returned.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var attempt uint
	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	}
	if o.notify != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(func(err error, next time.Duration) {
			o.notify(attempt, err, next)
		}))
	}

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op(ctx)
	}, retryOpts...)
}
