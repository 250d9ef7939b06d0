// Package lock serializes balance-changing operations per wallet.
//
// The database transaction and the ledger's unique index already make a
// double debit impossible; holding a per-wallet lock around the transaction
// keeps concurrent callers from failing on lock contention inside the
// database and makes the check-then-write sequence strictly ordered.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired in time.
// The operation did not run and may be retried by the caller.
var ErrTimeout = errors.New("lock: timed out waiting for wallet lock")

// Locker acquires exclusive ownership of a key.
type Locker interface {
	// Lock blocks until key is owned or ctx ends. The returned function
	// releases the key and must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
