package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

const (
	discountCodeLength   = 8
	maxCodeGenerateTries = 100
)

// DiscountUseCase manages discount codes.
type DiscountUseCase interface {
	// Create stores a new code. An empty Code asks for a generated one.
	Create(ctx context.Context, in DiscountInput) (*model.DiscountCode, error)
	Get(ctx context.Context, code string) (*model.DiscountCode, error)
}

type DiscountInput struct {
	Code     string
	Percent  int
	MaxUsage int
	StartAt  *time.Time
	EndAt    *time.Time
}

var _ DiscountUseCase = (*discountUC)(nil)

type discountUC struct {
	discounts repository.DiscountRepository
	log       *zerolog.Logger
}

func NewDiscountUseCase(discounts repository.DiscountRepository, logger *zerolog.Logger) DiscountUseCase {
	return &discountUC{discounts: discounts, log: nopIfNil(logger)}
}

func (u *discountUC) Create(ctx context.Context, in DiscountInput) (*model.DiscountCode, error) {
	if in.Code != "" {
		d, err := model.NewDiscountCode(in.Code, in.Percent, in.MaxUsage, in.StartAt, in.EndAt)
		if err != nil {
			return nil, err
		}
		if err := u.discounts.Save(ctx, repository.NoTX, d); err != nil {
			return nil, err
		}
		return d, nil
	}

	for i := 0; i < maxCodeGenerateTries; i++ {
		code, err := model.GenerateCode(discountCodeLength)
		if err != nil {
			return nil, err
		}
		d, err := model.NewDiscountCode(code, in.Percent, in.MaxUsage, in.StartAt, in.EndAt)
		if err != nil {
			return nil, err
		}
		err = u.discounts.Save(ctx, repository.NoTX, d)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		u.log.Info().Str("code", d.Code).Int("percent", d.Percent).Int("max_usage", d.MaxUsage).Msg("discount code created")
		return d, nil
	}
	return nil, fmt.Errorf("%w: no free discount code after %d tries", domain.ErrOperationFailed, maxCodeGenerateTries)
}

func (u *discountUC) Get(ctx context.Context, code string) (*model.DiscountCode, error) {
	return u.discounts.FindByCode(ctx, repository.NoTX, model.NormalizeCode(code))
}
