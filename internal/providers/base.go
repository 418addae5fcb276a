package providers

import (
	"context"
	"log/slog"
	"time"
)

// base is embedded by every concrete adapter for shared retry plumbing.
// Grounded on the teacher's BaseProvider: fixed attempt count, linear
// backoff, bail out early on non-retryable errors or a canceled context.
type base struct {
	name       string
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

func newBase(name string, log *slog.Logger) base {
	return base{
		name:       name,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		log:        log,
	}
}

// retry runs op up to maxRetries+1 times, sleeping retryDelay*(attempt+1)
// between attempts, stopping as soon as op succeeds, the context is
// done, or isRetryable(err) reports false.
func (b base) retry(ctx context.Context, isRetryable func(error) bool, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == b.maxRetries {
			break
		}
		b.log.Debug("provider call failed, retrying", "provider", b.name, "attempt", attempt+1, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt+1)):
		}
	}
	return lastErr
}
