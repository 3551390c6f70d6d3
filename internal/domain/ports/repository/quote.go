package repository

import (
	"context"
	"fmt"
	"time"

	"medcontent-subscription/internal/domain/model"
)

// QuoteStore keeps priced purchase intents for a short time. Losing a quote is
// never a data loss; Get reports domain.ErrNotFound for absent or expired keys.
type QuoteStore interface {
	Put(ctx context.Context, userID, planID int64, q *model.Quote, ttl time.Duration) error
	Get(ctx context.Context, userID, planID int64) (*model.Quote, error)
	Delete(ctx context.Context, userID, planID int64) error
}

func QuoteKey(userID, planID int64) string {
	return fmt.Sprintf("purchase_summary:%d:%d", userID, planID)
}
