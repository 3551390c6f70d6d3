package repository

import (
	"context"

	"medcontent-subscription/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByAuthority locks the row when called inside a transaction.
	FindByAuthority(ctx context.Context, tx Tx, authority string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.Payment, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
