package repository

import (
	"context"

	"medcontent-subscription/internal/domain/model"
)

type DiscountRepository interface {
	Save(ctx context.Context, tx Tx, d *model.DiscountCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.DiscountCode, error)
	// TryIncrementUsage consumes one redemption with a single conditional
	// update. It returns false when the code is exhausted.
	TryIncrementUsage(ctx context.Context, tx Tx, code string) (bool, error)
}
