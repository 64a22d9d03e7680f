package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrLimitReached = errors.New("retry limit reached")

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy describes a bounded retry with a fixed backoff.
type Policy struct {
	// Limit is the number of consecutive failures that turns into a fatal error.
	Limit   int
	Backoff time.Duration

	Sleep   Sleeper
	OnRetry func(err error, failures int)
}

// Budget creates a fresh consecutive-failure counter for one request loop.
func (p Policy) Budget() *Budget {
	return &Budget{policy: p}
}

// Do calls f until it succeeds, fails with an error shouldRetry rejects, or the budget is exhausted.
func (p Policy) Do(ctx context.Context, f func(context.Context) error, shouldRetry func(error) bool) error {
	budget := p.Budget()

	for {
		err := f(ctx)
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		if err := budget.Fail(ctx, err); err != nil {
			return err
		}
	}
}

// Budget counts consecutive failures of the pending request. It is not safe for concurrent use.
type Budget struct {
	policy   Policy
	failures int
}

// Fail records a failure. When the limit is reached it returns an error wrapping both ErrLimitReached and err,
// otherwise it sleeps for the backoff interval and returns nil (or the context error).
func (b *Budget) Fail(ctx context.Context, err error) error {
	b.failures++

	if b.failures >= b.policy.Limit {
		return fmt.Errorf("%w after %d attempts: %w", ErrLimitReached, b.failures, err)
	}

	if b.policy.OnRetry != nil {
		b.policy.OnRetry(err, b.failures)
	}

	sleep := b.policy.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	return sleep(ctx, b.policy.Backoff)
}

func (b *Budget) Reset() {
	b.failures = 0
}

func (b *Budget) Failures() int {
	return b.failures
}
