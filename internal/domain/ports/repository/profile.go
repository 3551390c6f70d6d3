package repository

import (
	"context"

	"medcontent-subscription/internal/domain/model"
)

type ProfileRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Profile) error
	FindByUserID(ctx context.Context, tx Tx, userID int64) (*model.Profile, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.Profile, error)
}
