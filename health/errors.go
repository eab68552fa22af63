package health

import "errors"

var (
	// ErrStoreUnreachable wraps the ping error of a failed StoreChecker.
	ErrStoreUnreachable = errors.New("health: store unreachable")

	// ErrCheckTimeout is reported when a check outlives the aggregator timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned by Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
