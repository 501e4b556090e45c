// errors.go defines the error taxonomy shared by the store and the
// service layers. Callers classify failures with errors.Is; the store
// wraps these sentinels with context via fmt.Errorf("%w").
package model

import "errors"

var (
	// ErrInvalidArgument rejects non-positive durations and negative
	// elapsed times synchronously, before any state change.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyInitialized is returned by an explicit Initialize against
	// an existing world clock. The auto-initializing service paths treat
	// it as "someone else won the race, re-read and proceed".
	ErrAlreadyInitialized = errors.New("world clock already initialized")

	// ErrConcurrencyConflict means the stored version no longer matches
	// the caller's token: another writer advanced the clock in between.
	// Retryable; the stored state is untouched.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrNotFound reports an unknown player, location, or absent clock.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is surfaced when a bounded retry budget is exhausted
	// under contention. Callers may re-attempt the whole operation.
	ErrUnavailable = errors.New("unavailable after retries")
)
