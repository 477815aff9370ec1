// Package store classifies backing-store failures and retries the
// transient ones. The store is rate-limited and occasionally drops
// connections; those failures are retried with bounded exponential
// backoff before being surfaced. Validation and precondition failures
// never pass through here.
package store

import (
	"context"
	"strings"
	"time"
)

// transientMarkers are substrings of driver errors worth retrying
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"deadlock",
}

// IsTransient reports whether the error is a retryable store failure
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryWithBackoff retries an operation with exponential backoff.
// Non-transient errors are returned immediately.
func RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var err error

	for retry := 0; retry < maxRetries; retry++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		// Calculate backoff duration
		backoff := time.Duration(1<<uint(retry)) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}

		// Wait for backoff duration or context cancellation
		select {
		case <-time.After(backoff):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
