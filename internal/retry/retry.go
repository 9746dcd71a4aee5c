// Package retry provides explicit retry policies for external call sites:
// a bounded attempt count, an exponential backoff schedule, and a
// retryable-error predicate, composed around each collaborator instead of
// hidden in cross-cutting wrappers.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how a call site retries transient failures.
type Policy struct {
	// MaxAttempts bounds the total number of attempts (initial call included).
	MaxAttempts int
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay growth.
	MaxInterval time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// Retryable reports whether an error is worth retrying.
	// A nil predicate retries everything.
	Retryable func(error) bool
}

// Default returns the policy used for external AI and index collaborators:
// exponential backoff from 1s to 10s.
func Default(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
	}
}

// Do runs op under the policy. Non-retryable errors and context cancellation
// stop immediately; otherwise op is retried until MaxAttempts is exhausted
// and the last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy requires at least one attempt, got %d", p.MaxAttempts)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0 // bounded by attempts, not wall time

	attempt := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	schedule := backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(p.MaxAttempts-1))
	return backoff.Retry(attempt, schedule)
}
