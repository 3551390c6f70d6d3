package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/metrics"
)

// VerificationUseCase is the only place that moves payments and their
// subscriptions into terminal states.
type VerificationUseCase interface {
	// Verify handles a gateway callback or a user confirm call. A payment that
	// is already COMPLETED is reported with AlreadyVerified and the gateway is
	// not contacted again. Gateway timeouts leave the payment PENDING. Calls for
	// the same authority run one at a time.
	Verify(ctx context.Context, in VerifyInput) (*VerifyOutcome, error)

	// Finalize applies a verified gateway result in one transaction: payment
	// COMPLETED, extend-or-activate, profile entitlement and referral.
	Finalize(ctx context.Context, authority string, res adapter.VerifyResult) (*VerifyOutcome, error)
}

// VerifyInput carries either the raw callback parameters, which the gateway
// interprets, or an explicit authority that the caller claims was paid.
type VerifyInput struct {
	Provider  string
	Params    map[string]string
	Authority string
	Proof     string
	// UserID is set for user initiated calls; the payment must belong to it.
	UserID *int64
}

type VerifyOutcome struct {
	PaymentID         string
	Provider          string
	Success           bool
	AlreadyVerified   bool
	RefID             string
	Status            model.PaymentStatus
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
}

type VerificationConfig struct {
	GatewayTimeout time.Duration
	LockTTL        time.Duration
	// LockWait bounds how long a verify waits behind another verify of the
	// same authority; it defaults to GatewayTimeout.
	LockWait time.Duration
}

var _ VerificationUseCase = (*verificationUC)(nil)

type verificationUC struct {
	tm        repository.TransactionManager
	plans     repository.PlanRepository
	payments  repository.PaymentRepository
	subs      repository.SubscriptionRepository
	profiles  repository.ProfileRepository
	gateways  GatewayResolver
	locker    adapter.Locker
	publisher adapter.EventPublisher
	cfg       VerificationConfig
	log       *zerolog.Logger
	now       func() time.Time
}

func NewVerificationUseCase(
	tm repository.TransactionManager,
	plans repository.PlanRepository,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	profiles repository.ProfileRepository,
	gateways GatewayResolver,
	locker adapter.Locker,
	publisher adapter.EventPublisher,
	cfg VerificationConfig,
	logger *zerolog.Logger,
) VerificationUseCase {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultVerifyLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = cfg.GatewayTimeout
	}
	return &verificationUC{
		tm:        tm,
		plans:     plans,
		payments:  payments,
		subs:      subs,
		profiles:  profiles,
		gateways:  gateways,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		log:       nopIfNil(logger),
		now:       time.Now,
	}
}

func (u *verificationUC) Verify(ctx context.Context, in VerifyInput) (out *VerifyOutcome, err error) {
	start := time.Now()
	gw, err := u.gateways.Get(in.Provider)
	if err != nil {
		return nil, err
	}
	defer func() { metrics.ObserveVerify(gw.Name(), verifyResult(out, err), time.Since(start)) }()

	cb, err := u.trigger(gw, in)
	if err != nil {
		return nil, err
	}
	log := u.log.With().Str("provider", gw.Name()).Str("authority", cb.Authority).Logger()

	lockKey := "payment_verify:" + cb.Authority
	token, err := u.acquire(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer release(ctx, u.locker, lockKey, token, &log)

	p, err := u.payments.FindByAuthority(ctx, repository.NoTX, cb.Authority)
	if err != nil {
		return nil, err
	}
	if p.Provider != gw.Name() {
		return nil, domain.ErrPaymentNotFound
	}
	if in.UserID != nil && *in.UserID != p.UserID {
		log.Warn().Int64("caller", *in.UserID).Str("payment_id", p.ID).Msg("verify attempt on foreign payment")
		return nil, domain.ErrForbidden
	}

	switch p.Status {
	case model.PaymentStatusCompleted:
		return u.completedOutcome(ctx, p, true)
	case model.PaymentStatusFailed, model.PaymentStatusCancelled:
		return nil, fmt.Errorf("%w: payment is %s", domain.ErrPaymentClosed, p.Status)
	}

	if in.Params == nil && cb.Proof == "" {
		if inq, ok := gw.(adapter.PaymentInquirer); ok {
			if cb, err = u.inquire(ctx, inq, p.Authority, &log); err != nil {
				return nil, err
			}
		}
	}

	switch cb.Outcome {
	case adapter.OutcomeSuccess:
	case adapter.OutcomeCancelled:
		if err := u.close(ctx, p.Authority, model.PaymentStatusCancelled, "cancelled at gateway (status "+cb.Status+")", &log); err != nil {
			return nil, err
		}
		return nil, domain.ErrPaymentCancelled
	default:
		if err := u.close(ctx, p.Authority, model.PaymentStatusFailed, "gateway reported failure (status "+cb.Status+")", &log); err != nil {
			return nil, err
		}
		return nil, domain.ErrPaymentFailed
	}

	vctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	res, err := gw.VerifyPayment(vctx, adapter.VerifyRequest{
		Authority: p.Authority,
		Proof:     cb.Proof,
		Amount:    p.FinalAmount,
	})
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrGatewayUnavailable):
		log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway verify unavailable; payment stays pending")
		return nil, err
	case errors.Is(err, domain.ErrGatewayRejected):
		log.Warn().Err(err).Str("payment_id", p.ID).Msg("gateway rejected verification")
		if cerr := u.close(ctx, p.Authority, model.PaymentStatusFailed, err.Error(), &log); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
	default:
		return nil, err
	}

	if res.AlreadyVerified {
		log.Info().Str("payment_id", p.ID).Msg("gateway reports an earlier verification; finalizing locally")
	}
	return u.Finalize(ctx, p.Authority, res)
}

// acquire takes the verify lease for one authority, waiting up to LockWait for
// a concurrent verify of the same payment to finish.
func (u *verificationUC) acquire(ctx context.Context, key string) (string, error) {
	var token string
	b := retry.WithMaxDuration(u.cfg.LockWait, retry.NewConstant(verifyLockPoll))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		t, err := u.locker.TryLock(ctx, key, u.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			return retry.RetryableError(err)
		}
		token = t
		return err
	})
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		return "", domain.ErrVerificationInProgress
	case err != nil:
		return "", fmt.Errorf("acquire verify lock: %w", err)
	}
	return token, nil
}

// inquire resolves a confirm call that carries no receipt by asking the gateway.
func (u *verificationUC) inquire(ctx context.Context, inq adapter.PaymentInquirer, authority string, log *zerolog.Logger) (adapter.CallbackResult, error) {
	ictx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := inq.Inquire(ictx, authority)
	if err != nil {
		log.Warn().Err(err).Msg("gateway inquiry failed; payment stays pending")
		return adapter.CallbackResult{}, err
	}
	if res.Outcome == adapter.OutcomePending {
		return adapter.CallbackResult{}, fmt.Errorf("%w (gateway status %q)", domain.ErrPaymentNotSettled, res.Status)
	}
	return res, nil
}

// trigger reduces the input to one callback result.
func (u *verificationUC) trigger(gw adapter.PaymentGateway, in VerifyInput) (adapter.CallbackResult, error) {
	if in.Params != nil {
		return gw.ParseCallback(in.Params)
	}
	if in.Authority == "" {
		return adapter.CallbackResult{}, fmt.Errorf("%w: authority required", domain.ErrInvalidArgument)
	}
	return adapter.CallbackResult{Authority: in.Authority, Proof: in.Proof, Outcome: adapter.OutcomeSuccess}, nil
}

func (u *verificationUC) Finalize(ctx context.Context, authority string, res adapter.VerifyResult) (*VerifyOutcome, error) {
	if res.RefID == "" {
		return nil, fmt.Errorf("%w: finalize %s without ref id", domain.ErrInvariantViolation, authority)
	}

	var (
		out      *VerifyOutcome
		paid     *model.Payment
		extended bool
	)
	now := u.now()
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		out, paid, extended = nil, nil, false

		p, err := u.payments.FindByAuthority(ctx, tx, authority)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentStatusCompleted:
			out, err = u.completedOutcomeTx(ctx, tx, p, true)
			return err
		case model.PaymentStatusFailed, model.PaymentStatusCancelled:
			return fmt.Errorf("%w: payment is %s", domain.ErrPaymentClosed, p.Status)
		}
		if p.SubscriptionID == nil {
			return fmt.Errorf("%w: payment %s has no subscription", domain.ErrInvariantViolation, p.ID)
		}

		if err := u.subs.LockUser(ctx, tx, p.UserID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		draft, err := u.subs.FindByID(ctx, tx, *p.SubscriptionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: subscription %s of payment %s is missing", domain.ErrInvariantViolation, *p.SubscriptionID, p.ID)
			}
			return err
		}
		plan, err := u.plans.FindByID(ctx, tx, draft.PlanID)
		if err != nil {
			return fmt.Errorf("load plan %d: %w", draft.PlanID, err)
		}
		active, err := u.subs.FindActiveByUser(ctx, tx, p.UserID, now)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if err := p.MarkCompleted(res.RefID, res.CardInfo, now); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		effective, ext, err := model.ExtendOrActivate(now, draft, active, plan)
		if err != nil {
			return err
		}
		if ext {
			if err := u.subs.Save(ctx, tx, active); err != nil {
				return fmt.Errorf("extend subscription: %w", err)
			}
		}
		if err := u.subs.Save(ctx, tx, draft); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}

		profile, err := u.profileFor(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		profile.GrantPremium(effective.EndDate)
		if err := u.attachReferral(ctx, tx, profile, p); err != nil {
			return err
		}
		if err := u.profiles.Save(ctx, tx, profile); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}

		ref := *p.RefID
		out = &VerifyOutcome{
			PaymentID:         p.ID,
			Provider:          p.Provider,
			Success:           true,
			RefID:             ref,
			Status:            p.Status,
			SubscriptionStart: &effective.StartDate,
			SubscriptionEnd:   &effective.EndDate,
		}
		paid, extended = p, ext
		return nil
	})
	if err != nil {
		if domain.Classify(err) == domain.KindInvariant {
			u.log.Error().Err(err).Str("authority", authority).Msg("finalize aborted on invariant violation")
		} else {
			u.log.Error().Err(err).Str("authority", authority).Msg("finalize rolled back")
		}
		return nil, err
	}
	if paid == nil {
		return out, nil
	}

	kind := "activated"
	if extended {
		kind = "extended"
	}
	metrics.IncSubscriptionFinalized(kind)
	metrics.IncPayment(paid.Provider, string(paid.Status))
	metrics.AddPaymentRevenue(paid.Currency, paid.FinalAmount)
	u.log.Info().
		Str("payment_id", paid.ID).
		Int64("user_id", paid.UserID).
		Str("ref_id", out.RefID).
		Str("subscription", kind).
		Time("subscription_end", *out.SubscriptionEnd).
		Msg("payment finalized")

	u.publish(ctx, adapter.PaymentEvent{
		Type:            adapter.EventPaymentCompleted,
		PaymentID:       paid.ID,
		UserID:          paid.UserID,
		PlanID:          paid.PlanID,
		Provider:        paid.Provider,
		Amount:          paid.FinalAmount,
		RefID:           out.RefID,
		SubscriptionEnd: out.SubscriptionEnd,
		OccurredAt:      now,
	})
	return out, nil
}

// close moves a pending payment to FAILED or CANCELLED and cancels its draft.
func (u *verificationUC) close(ctx context.Context, authority string, status model.PaymentStatus, reason string, log *zerolog.Logger) error {
	now := u.now()
	var closed *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByAuthority(ctx, tx, authority)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return fmt.Errorf("%w: payment is %s", domain.ErrPaymentClosed, p.Status)
		}
		if status == model.PaymentStatusCancelled {
			err = p.MarkCancelled(reason, now)
		} else {
			err = p.MarkFailed(reason, now)
		}
		if err != nil {
			return err
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		if p.SubscriptionID != nil {
			sub, err := u.subs.FindByID(ctx, tx, *p.SubscriptionID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
			case err != nil:
				return err
			case sub.Status == model.SubscriptionStatusPending:
				if err := sub.Cancel(now); err != nil {
					return err
				}
				if err := u.subs.Save(ctx, tx, sub); err != nil {
					return fmt.Errorf("cancel subscription: %w", err)
				}
			}
		}
		closed = p
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IncPayment(closed.Provider, string(closed.Status))
	log.Info().Str("payment_id", closed.ID).Str("status", string(closed.Status)).Str("reason", reason).Msg("payment closed")

	evType := adapter.EventPaymentFailed
	if closed.Status == model.PaymentStatusCancelled {
		evType = adapter.EventPaymentCancelled
	}
	u.publish(ctx, adapter.PaymentEvent{
		Type:       evType,
		PaymentID:  closed.ID,
		UserID:     closed.UserID,
		PlanID:     closed.PlanID,
		Provider:   closed.Provider,
		Amount:     closed.FinalAmount,
		Reason:     reason,
		OccurredAt: now,
	})
	return nil
}

func (u *verificationUC) profileFor(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error) {
	profile, err := u.profiles.FindByUserID(ctx, tx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return model.NewProfile(userID)
}

// attachReferral records the referrer named on the payment. Codes that no
// longer resolve are logged and ignored.
func (u *verificationUC) attachReferral(ctx context.Context, tx repository.Tx, profile *model.Profile, p *model.Payment) error {
	if p.ReferralCode == "" || profile.ReferredBy != nil {
		return nil
	}
	referrer, err := u.profiles.FindByReferralCode(ctx, tx, p.ReferralCode)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Info().Str("payment_id", p.ID).Str("referral_code", p.ReferralCode).Msg("referral code no longer resolves; ignored")
		return nil
	}
	if err != nil {
		return err
	}
	if !profile.AttachReferrer(referrer.UserID) {
		u.log.Info().Str("payment_id", p.ID).Int64("referrer", referrer.UserID).Msg("referral not attached")
	}
	return nil
}

func (u *verificationUC) completedOutcome(ctx context.Context, p *model.Payment, already bool) (*VerifyOutcome, error) {
	return u.completedOutcomeTx(ctx, repository.NoTX, p, already)
}

func (u *verificationUC) completedOutcomeTx(ctx context.Context, tx repository.Tx, p *model.Payment, already bool) (*VerifyOutcome, error) {
	if p.RefID == nil {
		return nil, fmt.Errorf("%w: completed payment %s without ref id", domain.ErrInvariantViolation, p.ID)
	}
	out := &VerifyOutcome{
		PaymentID:       p.ID,
		Provider:        p.Provider,
		Success:         true,
		AlreadyVerified: already,
		RefID:           *p.RefID,
		Status:          p.Status,
	}
	if p.SubscriptionID != nil {
		sub, err := u.subs.FindByID(ctx, tx, *p.SubscriptionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if sub != nil {
			out.SubscriptionStart = &sub.StartDate
			out.SubscriptionEnd = &sub.EndDate
		}
	}
	return out, nil
}

// publish hands an event to the fan-out; failures never affect the caller.
func (u *verificationUC) publish(ctx context.Context, ev adapter.PaymentEvent) {
	if u.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := u.publisher.PublishPaymentEvent(ctx, ev); err != nil {
		u.log.Warn().Err(err).Str("event", ev.Type).Str("payment_id", ev.PaymentID).Msg("failed to publish payment event")
	}
}

func verifyResult(out *VerifyOutcome, err error) string {
	switch {
	case err == nil && out != nil && out.AlreadyVerified:
		return "already_verified"
	case err == nil:
		return "completed"
	case errors.Is(err, domain.ErrPaymentCancelled):
		return "cancelled"
	default:
		return domain.Classify(err).String()
	}
}
