package memory

import (
	"context"
	"sync"
	"time"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.QuoteStore = (*QuoteStore)(nil)

type quoteEntry struct {
	quote     model.Quote
	expiresAt time.Time
}

// QuoteStore is a TTL map keyed like the Redis store.
type QuoteStore struct {
	mu      sync.Mutex
	entries map[string]quoteEntry
	now     func() time.Time
}

// NewQuoteStore uses time.Now when clock is nil.
func NewQuoteStore(clock func() time.Time) *QuoteStore {
	if clock == nil {
		clock = time.Now
	}
	return &QuoteStore{entries: map[string]quoteEntry{}, now: clock}
}

func (s *QuoteStore) Put(ctx context.Context, userID, planID int64, q *model.Quote, ttl time.Duration) error {
	if q == nil || ttl <= 0 {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[repository.QuoteKey(userID, planID)] = quoteEntry{quote: *q, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *QuoteStore) Get(ctx context.Context, userID, planID int64) (*model.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repository.QuoteKey(userID, planID)
	e, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, domain.ErrNotFound
	}
	q := e.quote
	return &q, nil
}

func (s *QuoteStore) Delete(ctx context.Context, userID, planID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, repository.QuoteKey(userID, planID))
	return nil
}
