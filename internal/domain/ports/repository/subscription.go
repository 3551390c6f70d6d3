package repository

import (
	"context"
	"time"

	"medcontent-subscription/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByUser returns the user's ACTIVE row whose end date is after now,
	// or domain.ErrNotFound.
	FindActiveByUser(ctx context.Context, tx Tx, userID int64, now time.Time) (*model.Subscription, error)
	Delete(ctx context.Context, tx Tx, id string) error
	// LockUser serializes subscription changes for one user until tx ends.
	LockUser(ctx context.Context, tx Tx, userID int64) error
}
