package adapter

import (
	"context"
	"time"
)

// Locker is a keyed mutual exclusion primitive with a lease. TryLock returns
// domain.ErrLockHeld when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
