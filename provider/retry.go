package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// Retry invokes op, retrying with the given backoff while op returns an
// UnavailableError. Any other error is permanent and returned immediately.
//
// The retry loop stops when the context is cancelled or the backoff
// algorithm gives up; the last error is returned. Retries happen only here,
// at the adapter boundary, never inside core logic.
func Retry(ctx context.Context, algo backoff.BackOff, logger *zap.Logger, op func() error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsUnavailable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, dur time.Duration) {
		logger.Info("Retrying", zap.Error(err), zap.Duration("duration", dur))
	}
	return backoff.RetryNotify(wrapped, backoff.WithContext(algo, ctx), notify)
}
