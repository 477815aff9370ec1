package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/internal/store"
)

// storeAttempts bounds how often a single store operation is retried
// against transient failures before it surfaces as Unavailable.
const storeAttempts = 3

// retried runs a store operation, retrying transient failures with
// bounded exponential backoff. Non-transient errors pass through
// unchanged; a failure that stays transient after the retry budget is
// spent surfaces as Unavailable.
func retried[T any](ctx context.Context, what string, op func() (T, error)) (T, error) {
	var out T
	err := store.RetryWithBackoff(ctx, func() error {
		var opErr error
		out, opErr = op()
		return opErr
	}, storeAttempts)
	return out, surfaceTransient(err, what)
}

// retriedDo is retried for operations that return only an error
func retriedDo(ctx context.Context, what string, op func() error) error {
	return surfaceTransient(store.RetryWithBackoff(ctx, op, storeAttempts), what)
}

// surfaceTransient maps an exhausted transient failure to Unavailable
func surfaceTransient(err error, what string) error {
	if err == nil || !store.IsTransient(err) {
		return err
	}
	log.Error().Err(err).Str("operation", what).Msg("Store retries exhausted")
	return NewUnavailableError("store unavailable during %s", what)
}
