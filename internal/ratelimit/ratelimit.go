// Package ratelimit paces calls against provider request quotas.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// Limiter spreads requests evenly over a per-minute quota. A call whose
// slot lies further out than the max wait fails instead of queueing.
type Limiter struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

type options struct {
	burst   int
	maxWait time.Duration
}

// Option configures a Limiter.
type Option func(*options)

// WithBurst allows n back-to-back requests before pacing starts.
func WithBurst(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.burst = n
		}
	}
}

// WithMaxWait bounds how long Wait may block. Zero waits for the context only.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		o.maxWait = d
	}
}

// New creates a limiter allowing perMinute requests per minute.
func New(perMinute int, opts ...Option) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	o := options{burst: 1}
	for _, opt := range opts {
		opt(&o)
	}
	// The bucket starts full, so it must be built with its final size.
	return &Limiter{
		limiter: rate.NewLimiter(perSecond(perMinute), o.burst),
		maxWait: o.maxWait,
	}
}

// Wait blocks until the next slot. It returns CodeRateLimitExceeded when the
// slot is beyond the max wait, and the context error on cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if l.maxWait > 0 && delay > l.maxWait {
		r.Cancel()
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithContext(fmt.Sprintf("next slot in %s", delay.Round(time.Millisecond))))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Allow takes a slot if one is free right now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetPerMinute changes the quota in place.
func (l *Limiter) SetPerMinute(perMinute int) {
	if perMinute <= 0 {
		return
	}
	l.limiter.SetLimit(perSecond(perMinute))
}

func perSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}
