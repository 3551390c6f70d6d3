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
	"medcontent-subscription/internal/infra/metrics"
)

// PricingUseCase prices a plan for a user and parks the result in the quote
// store, where checkout picks it up.
type PricingUseCase interface {
	// Quote validates discount and referral codes, consumes one discount
	// redemption and stores the quote under purchase_summary:{user}:{plan}.
	Quote(ctx context.Context, in QuoteInput) (*model.Quote, error)

	// Preview prices a plan without codes and without touching the store.
	Preview(ctx context.Context, planID int64) (*model.Quote, error)
}

type QuoteInput struct {
	UserID       int64
	PlanID       int64
	DiscountCode string
	ReferralCode string
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	plans     repository.PlanRepository
	discounts repository.DiscountRepository
	profiles  repository.ProfileRepository
	quotes    repository.QuoteStore
	ttl       time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

// NewPricingUseCase builds the pricing step. ttl <= 0 means DefaultQuoteTTL.
func NewPricingUseCase(
	plans repository.PlanRepository,
	discounts repository.DiscountRepository,
	profiles repository.ProfileRepository,
	quotes repository.QuoteStore,
	ttl time.Duration,
	logger *zerolog.Logger,
) PricingUseCase {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &pricingUC{
		plans:     plans,
		discounts: discounts,
		profiles:  profiles,
		quotes:    quotes,
		ttl:       ttl,
		log:       nopIfNil(logger),
		now:       time.Now,
	}
}

func (u *pricingUC) Preview(ctx context.Context, planID int64) (*model.Quote, error) {
	plan, err := u.purchasablePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return newQuote(plan, nil, "", u.now()), nil
}

func (u *pricingUC) Quote(ctx context.Context, in QuoteInput) (*model.Quote, error) {
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id", domain.ErrInvalidArgument)
	}
	plan, err := u.purchasablePlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}

	referral := model.NormalizeCode(in.ReferralCode)
	if referral != "" {
		if err := u.checkReferral(ctx, in.UserID, referral); err != nil {
			return nil, err
		}
	}

	var discount *model.DiscountCode
	if code := model.NormalizeCode(in.DiscountCode); code != "" {
		discount, err = u.redeem(ctx, code, plan.Price)
		if err != nil {
			return nil, err
		}
	}

	q := newQuote(plan, discount, referral, u.now())
	if err := u.quotes.Put(ctx, in.UserID, in.PlanID, q, u.ttl); err != nil {
		u.log.Error().Err(err).Int64("user_id", in.UserID).Int64("plan_id", in.PlanID).Msg("failed to store quote")
		return nil, fmt.Errorf("store quote: %w", err)
	}

	u.log.Info().
		Int64("user_id", in.UserID).
		Int64("plan_id", in.PlanID).
		Int64("final_price", q.FinalPrice).
		Str("discount_code", q.DiscountCode).
		Msg("quote stored")
	return q, nil
}

func (u *pricingUC) purchasablePlan(ctx context.Context, planID int64) (*model.Plan, error) {
	if planID <= 0 {
		return nil, fmt.Errorf("%w: plan id", domain.ErrInvalidArgument)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}
	return plan, nil
}

func (u *pricingUC) checkReferral(ctx context.Context, userID int64, code string) error {
	owner, err := u.profiles.FindByReferralCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrReferralInvalid
	}
	if err != nil {
		return err
	}
	if owner.UserID == userID {
		return fmt.Errorf("%w: own referral code", domain.ErrReferralInvalid)
	}
	return nil
}

// redeem validates the code and consumes one usage slot atomically. A code
// that would leave nothing to pay is refused before the slot is taken.
func (u *pricingUC) redeem(ctx context.Context, code string, price int64) (*model.DiscountCode, error) {
	d, err := u.discounts.FindByCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDiscountNotFound) {
		metrics.IncDiscountRedemption("not_found")
		return nil, domain.ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	if !d.IsUsable(u.now()) {
		metrics.IncDiscountRedemption("not_usable")
		return nil, domain.ErrDiscountNotUsable
	}
	if _, final := d.Apply(price); final <= 0 {
		metrics.IncDiscountRedemption("zero_total")
		return nil, fmt.Errorf("%w: discount %s covers the whole price", domain.ErrAmountTooLow, d.Code)
	}
	ok, err := u.discounts.TryIncrementUsage(ctx, repository.NoTX, d.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncDiscountRedemption("exhausted")
		return nil, domain.ErrDiscountExhausted
	}
	metrics.IncDiscountRedemption("ok")
	return d, nil
}

func newQuote(plan *model.Plan, discount *model.DiscountCode, referral string, now time.Time) *model.Quote {
	off, final := discount.Apply(plan.Price)
	q := &model.Quote{
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		DurationDays:   plan.DurationDays,
		OriginalPrice:  plan.Price,
		DiscountAmount: off,
		FinalPrice:     final,
		ReferralCode:   referral,
		CreatedAt:      now,
	}
	if discount != nil {
		q.DiscountCode = discount.Code
		q.DiscountPercent = discount.Percent
	}
	return q
}
