package supplier

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	pkgerrors "github.com/pkg/errors"
)

// MaxRetries bounds retries for corrupt
// archives, HTTP 5xx, and timeouts. Connection failures never reach this loop —
// fetch callbacks classify those out as non-retryable *Error values.
const MaxRetries = 3

// withRetry runs fetch once per attempt (1-indexed), retrying on a
// retryable *Error with exponential backoff. Anything
// else — including a connection failure — is returned immediately via
// backoff.Permanent. The original *Error survives every wrapped hop
// (pkgerrors.Wrapf preserves Unwrap through errors.Cause) so the CLI's
// top-level printer can still report why the last attempt failed.
func withRetry(ctx context.Context, fetch func(attempt int) error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries), ctx)

	attempt := 0
	var lastErr error
	op := func() error {
		attempt++
		err := fetch(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if supErr, ok := err.(*Error); !ok || !supErr.Retryable() {
			return backoff.Permanent(err)
		}
		return pkgerrors.Wrapf(err, "attempt %d/%d", attempt, MaxRetries+1)
	}

	if err := backoff.Retry(op, b); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return perm.Err
		}
		return lastErr
	}
	return nil
}

// fallbackURLs rotates through a configured registry URL list across
// retry attempts, rather than hammering one host.
func fallbackURLs(urls []string, attempt int) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[(attempt-1)%len(urls)]
}
