package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/metrics"
)

var _ repository.QuoteStore = (*QuoteStore)(nil)

// QuoteStore keeps quotes as JSON under repository.QuoteKey with a TTL.
type QuoteStore struct {
	cli RedisClient
}

func NewQuoteStore(cli RedisClient) *QuoteStore {
	return &QuoteStore{cli: cli}
}

func (s *QuoteStore) Put(ctx context.Context, userID, planID int64, q *model.Quote, ttl time.Duration) error {
	if q == nil || ttl <= 0 {
		return domain.ErrInvalidArgument
	}
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	return s.cli.Set(ctx, repository.QuoteKey(userID, planID), b, ttl)
}

func (s *QuoteStore) Get(ctx context.Context, userID, planID int64) (*model.Quote, error) {
	val, err := s.cli.Get(ctx, repository.QuoteKey(userID, planID))
	if errors.Is(err, Nil) {
		metrics.ObserveCacheLookup("quote", false)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var q model.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		// unreadable entries count as absent
		metrics.ObserveCacheLookup("quote", false)
		return nil, domain.ErrNotFound
	}
	metrics.ObserveCacheLookup("quote", true)
	return &q, nil
}

func (s *QuoteStore) Delete(ctx context.Context, userID, planID int64) error {
	return s.cli.Del(ctx, repository.QuoteKey(userID, planID))
}
