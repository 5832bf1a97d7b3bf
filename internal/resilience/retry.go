// Package resilience retries calls to the record store and the S3 bucket
// when they fail for reasons that are likely to clear on their own.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, the first included. Default: 3.
	Attempts int

	// Backoff is the delay before the first retry. Default: 250ms.
	Backoff time.Duration

	// MaxBackoff caps the doubled delay. Default: 5s.
	MaxBackoff time.Duration

	// Jitter spreads each delay by up to this fraction either way. Default: 0.2.
	Jitter float64

	// Retryable overrides IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy is used when connecting to Postgres and reading from S3.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    250 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Jitter:     0.2,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = d.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay returns the wait after the given failed attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt-1))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds or returns an error the policy does not
// retry, the attempts run out, or ctx is done. The last error is returned
// unwrapped. Each retry is logged under op.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || attempt >= p.Attempts || !p.Retryable(err) {
			return zero, err
		}

		wait := p.delay(attempt)
		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// Do is Retry for operations without a result.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := Retry(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
