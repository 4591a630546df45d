package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// Policy bounds an exponential backoff retry
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is used when a caller does not configure one
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.Multiplier = 2
	return bo
}

// Permanent marks err as not worth retrying. Do returns err itself.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Value runs op until it succeeds, returns a Permanent error, the attempts
// are exhausted or ctx is done.
func Value[T any](ctx context.Context, p Policy, name string, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	notify := func(err error, next time.Duration) {
		logging.From(ctx).Warn("retrying after failure",
			"operation", name,
			"error", err,
			"next", next)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
}

// Do is Value for operations without a result
func Do(ctx context.Context, p Policy, name string, op func() error) error {
	_, err := Value(ctx, p, name, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
