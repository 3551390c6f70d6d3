package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/metrics"
)

// CheckoutUseCase turns a stored quote into a pending payment at a gateway.
type CheckoutUseCase interface {
	// CreatePayment writes Payment(PENDING) and Subscription(PENDING), asks the
	// gateway for a payment handle and consumes the quote. When the gateway
	// request fails both rows are removed and the quote is kept.
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error)
}

type CreatePaymentInput struct {
	UserID    int64
	PlanID    int64
	Provider  string
	UserIP    string
	UserAgent string
	Payer     adapter.Payer
}

type CreatePaymentResult struct {
	PaymentID      string
	SubscriptionID string
	Provider       string
	Authority      string
	RedirectURL    string
	Amount         int64
}

type CheckoutConfig struct {
	// CallbackBaseURL is the public API root; empty leaves the callback to each gateway's default.
	CallbackBaseURL string
	GatewayTimeout  time.Duration
	LockTTL         time.Duration
}

var _ CheckoutUseCase = (*checkoutUC)(nil)

type checkoutUC struct {
	tm       repository.TransactionManager
	plans    repository.PlanRepository
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	quotes   repository.QuoteStore
	gateways GatewayResolver
	locker   adapter.Locker
	cfg      CheckoutConfig
	log      *zerolog.Logger
	now      func() time.Time
}

func NewCheckoutUseCase(
	tm repository.TransactionManager,
	plans repository.PlanRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	quotes repository.QuoteStore,
	gateways GatewayResolver,
	locker adapter.Locker,
	cfg CheckoutConfig,
	logger *zerolog.Logger,
) CheckoutUseCase {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultCheckoutTTL
	}
	cfg.CallbackBaseURL = strings.TrimRight(cfg.CallbackBaseURL, "/")
	return &checkoutUC{
		tm:       tm,
		plans:    plans,
		payments: payments,
		subs:     subs,
		quotes:   quotes,
		gateways: gateways,
		locker:   locker,
		cfg:      cfg,
		log:      nopIfNil(logger),
		now:      time.Now,
	}
}

func (u *checkoutUC) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if in.UserID <= 0 || in.PlanID <= 0 {
		return nil, fmt.Errorf("%w: user and plan are required", domain.ErrInvalidArgument)
	}
	gw, err := u.gateways.Get(in.Provider)
	if err != nil {
		return nil, err
	}
	log := u.log.With().Int64("user_id", in.UserID).Int64("plan_id", in.PlanID).Str("provider", gw.Name()).Logger()

	lockKey := fmt.Sprintf("checkout:%d:%d", in.UserID, in.PlanID)
	token, err := u.locker.TryLock(ctx, lockKey, u.cfg.LockTTL)
	if errors.Is(err, domain.ErrLockHeld) {
		return nil, domain.ErrCheckoutInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	defer release(ctx, u.locker, lockKey, token, &log)

	quote, err := u.quotes.Get(ctx, in.UserID, in.PlanID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrQuoteExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load quote: %w", err)
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, in.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}
	if quote.FinalPrice <= 0 {
		return nil, domain.ErrAmountTooLow
	}

	now := u.now()
	sub, err := model.NewPendingSubscription(uuid.NewString(), in.UserID, plan, quote.FinalPrice, now)
	if err != nil {
		return nil, err
	}
	subID := sub.ID
	p := &model.Payment{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		PlanID:         plan.ID,
		SubscriptionID: &subID,
		Provider:       gw.Name(),
		Amount:         quote.OriginalPrice,
		DiscountAmount: quote.DiscountAmount,
		FinalAmount:    quote.FinalPrice,
		Currency:       model.CurrencyIRR,
		Status:         model.PaymentStatusPending,
		DiscountCode:   quote.DiscountCode,
		ReferralCode:   quote.ReferralCode,
		Description:    fmt.Sprintf("%s (%d days)", plan.Name, plan.DurationDays),
		UserIP:         in.UserIP,
		UserAgent:      in.UserAgent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.Validate(); err != nil {
		log.Error().Err(err).Msg("quote produced an invalid payment")
		return nil, err
	}

	if err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.pruneStaleDrafts(ctx, tx, in.UserID, plan.ID, now, &log); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	handle, gwErr := gw.RequestPayment(gwCtx, adapter.PaymentRequest{
		OrderID:     p.ID,
		Amount:      p.FinalAmount,
		Description: p.Description,
		CallbackURL: u.callbackURL(gw.Name()),
		Metadata: map[string]string{
			"payment_id": p.ID,
			"user_id":    strconv.FormatInt(p.UserID, 10),
		},
		Payer: in.Payer,
	})
	cancel()
	if gwErr != nil {
		u.discard(ctx, p, sub, &log)
		metrics.IncPayment(gw.Name(), "request_failed")
		log.Warn().Err(gwErr).Msg("gateway payment request failed")
		return nil, fmt.Errorf("request payment: %w", gwErr)
	}

	p.Authority = handle.Authority
	p.UpdatedAt = u.now()
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		u.discard(ctx, p, sub, &log)
		log.Error().Err(err).Str("authority", handle.Authority).Msg("failed to persist gateway authority")
		return nil, fmt.Errorf("save authority: %w", err)
	}

	if err := u.quotes.Delete(ctx, in.UserID, in.PlanID); err != nil {
		log.Warn().Err(err).Msg("failed to delete consumed quote")
	}

	metrics.IncPayment(gw.Name(), string(model.PaymentStatusPending))
	log.Info().Str("payment_id", p.ID).Str("authority", p.Authority).Int64("amount", p.FinalAmount).Msg("payment created")

	return &CreatePaymentResult{
		PaymentID:      p.ID,
		SubscriptionID: sub.ID,
		Provider:       gw.Name(),
		Authority:      p.Authority,
		RedirectURL:    handle.RedirectURL,
		Amount:         p.FinalAmount,
	}, nil
}

func (u *checkoutUC) callbackURL(provider string) string {
	if u.cfg.CallbackBaseURL == "" {
		return ""
	}
	return u.cfg.CallbackBaseURL + "/api/v1/payments/callback/" + provider
}

// discard removes the draft pair of a checkout that never reached the gateway.
func (u *checkoutUC) discard(ctx context.Context, p *model.Payment, sub *model.Subscription, log *zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Delete(ctx, tx, p.ID); err != nil {
			return err
		}
		return u.subs.Delete(ctx, tx, sub.ID)
	})
	if err != nil {
		log.Error().Err(err).Str("payment_id", p.ID).Str("subscription_id", sub.ID).Msg("failed to discard draft payment")
	}
}

// pruneStaleDrafts removes pairs of this user and plan that never received an
// authority, left behind by a process that died during the gateway request.
// The checkout lease is held, so a live request can only own a draft younger
// than the gateway timeout.
func (u *checkoutUC) pruneStaleDrafts(ctx context.Context, tx repository.Tx, userID, planID int64, now time.Time, log *zerolog.Logger) error {
	recent, err := u.payments.ListByUser(ctx, tx, userID, staleDraftScan)
	if err != nil {
		return fmt.Errorf("list drafts: %w", err)
	}
	cutoff := now.Add(-u.cfg.GatewayTimeout)
	for _, p := range recent {
		if p.PlanID != planID || p.Status != model.PaymentStatusPending || p.Authority != "" || !p.CreatedAt.Before(cutoff) {
			continue
		}
		if err := u.payments.Delete(ctx, tx, p.ID); err != nil {
			return fmt.Errorf("delete stale draft: %w", err)
		}
		if p.SubscriptionID != nil {
			if err := u.subs.Delete(ctx, tx, *p.SubscriptionID); err != nil {
				return fmt.Errorf("delete stale draft subscription: %w", err)
			}
		}
		log.Warn().Str("payment_id", p.ID).Time("created_at", p.CreatedAt).Msg("removed stale draft payment")
	}
	return nil
}
