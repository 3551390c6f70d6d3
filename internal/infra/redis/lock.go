package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*RedisLocker)(nil)

const (
	lockAttempts   = 5
	lockRetryDelay = 50 * time.Millisecond
)

// RedisLocker is a lease lock over SET NX PX. Only the holder's token can release it.
type RedisLocker struct {
	cli RedisClient
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		if err == nil && ok {
			return token, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrLockHeld
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.DelIfEquals(ctx, key, token)
	return err
}
