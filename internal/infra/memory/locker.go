package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*Locker)(nil)

type lease struct {
	token     string
	expiresAt time.Time
}

// Locker is a process-local adapter.Locker.
type Locker struct {
	mu     sync.Mutex
	leases map[string]lease
}

func NewLocker() *Locker { return &Locker{leases: map[string]lease{}} }

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expiresAt) {
		return "", domain.ErrLockHeld
	}
	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.leases[key]; ok && cur.token == token {
		delete(l.leases, key)
	}
	return nil
}
