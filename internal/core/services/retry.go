package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/logger"
)

// RetryPolicy is a bounded exponential backoff applied at the store and
// embedding boundaries. MaxRetries of zero aborts on the first failure.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns three retries starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// NoRetry returns a policy that gives up after the first failure.
func NoRetry() RetryPolicy {
	return RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

// Do runs fn until it succeeds, the retries are exhausted, the error is
// permanent or ctx is done. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	retries := uint64(0)
	if p.MaxRetries > 0 {
		retries = uint64(p.MaxRetries)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, retries), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, p.MaxRetries+1, wait, err)
	}

	return backoff.RetryNotify(operation, b, notify)
}

// isPermanent reports errors that retrying cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrProviderRejected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
