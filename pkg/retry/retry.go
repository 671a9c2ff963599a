// Package retry provides a single retry policy shared by every external call
// site. Delays follow an exponential backoff built on cenkalti/backoff.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// jitterFactor spreads each delay over [0.5, 1.5] times the interval.
const jitterFactor = 0.5

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps the interval before jitter. Zero means uncapped.
	MaxDelay time.Duration
	// Jitter randomizes each delay around the exponential interval.
	Jitter bool
	// Retryable decides whether err is worth another attempt. When nil,
	// every error not marked permanent is retried.
	Retryable func(err error) bool

	timer backoff.Timer
}

// Default returns the policy used for payment processor calls.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

func (p Policy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = 0
	if p.Jitter {
		b.RandomizationFactor = jitterFactor
	}
	// Attempts bound the retries, not wall-clock time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the wait before retry number attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := p.exponential()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// ShouldRetry reports whether err may be retried under this policy.
func (p Policy) ShouldRetry(err error) bool {
	if err == nil || apperrors.IsPermanent(err) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. The last error from fn is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !p.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), uint64(attempts-1)), ctx)
	if err := backoff.RetryNotifyWithTimer(op, b, nil, p.timer); err != nil {
		if last != nil {
			return last
		}
		return err
	}
	return nil
}
