// Package retry runs an operation with bounded exponential backoff.
//
// The worst-case added latency of Do is the sum of the backoff delays:
// InitialDelay * (1 + Factor + Factor^2 + ... ) over MaxAttempts-1 waits,
// plus whatever each attempt itself takes.
package retry

import (
	"context"
	"errors"
	"time"
)

type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	// Retryable decides whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
}

// DefaultPolicy is 2 retries after the first attempt, waiting 1s then 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 2}
}

// MaxBackoff returns the total time spent sleeping if every attempt fails.
func (p Policy) MaxBackoff() time.Duration {
	p = p.normalized()
	var total time.Duration
	delay := p.InitialDelay
	for i := 1; i < p.MaxAttempts; i++ {
		total += delay
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
	return total
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 1
	}
	return p
}

// Sleep is swapped out in tests.
var Sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts run
// out, or ctx is done. The last error from fn is returned.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var (
		result T
		err    error
	)
	delay := p.InitialDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == p.MaxAttempts || (p.Retryable != nil && !p.Retryable(err)) {
			break
		}
		if sleepErr := Sleep(ctx, delay); sleepErr != nil {
			return result, errors.Join(err, sleepErr)
		}
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
	return result, err
}
