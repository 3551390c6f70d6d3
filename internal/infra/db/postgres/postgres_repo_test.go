//go:build integration

package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

func seedPlan(t *testing.T, ctx context.Context) *model.Plan {
	t.Helper()
	plans := NewPostgresPlanRepo(testPool)
	m := &model.Membership{Name: "Premium", CreatedAt: time.Now()}
	require.NoError(t, plans.SaveMembership(ctx, nil, m))
	p, err := model.NewPlan(m.ID, "Monthly", 30, 150000)
	require.NoError(t, err)
	require.NoError(t, plans.Save(ctx, nil, p))
	return p
}

func TestPlanRepo_Integration(t *testing.T) {
	ctx := context.Background()
	plans := NewPostgresPlanRepo(testPool)
	subs := NewSubscriptionRepo(testPool)

	t.Run("should assign an id and list active plans", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		require.NotZero(t, p.ID)

		found, err := plans.FindByID(ctx, nil, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(150000), found.Price)

		list, err := plans.ListActive(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("should refuse to delete a plan with subscriptions", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		sub, err := model.NewPendingSubscription(uuid.NewString(), 7, p, p.Price, time.Now())
		require.NoError(t, err)
		require.NoError(t, subs.Save(ctx, nil, sub))

		err = plans.Delete(ctx, nil, p.ID)
		assert.ErrorIs(t, err, domain.ErrPlanInUse)
	})

	t.Run("should report a missing plan", func(t *testing.T) {
		cleanup(t)
		_, err := plans.FindByID(ctx, nil, 999)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}

func TestDiscountRepo_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscountRepo(testPool)

	t.Run("should never exceed max usage under contention", func(t *testing.T) {
		cleanup(t)
		d, err := model.NewDiscountCode("spring20", 20, 5, nil, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, nil, d))

		var ok int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := repo.TryIncrementUsage(ctx, nil, "SPRING20")
				if err == nil && got {
					atomic.AddInt32(&ok, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), ok)
		stored, err := repo.FindByCode(ctx, nil, "spring20")
		require.NoError(t, err)
		assert.Equal(t, 5, stored.UsageCount)
	})

	t.Run("should report an unknown code", func(t *testing.T) {
		cleanup(t)
		_, err := repo.TryIncrementUsage(ctx, nil, "NOPE")
		assert.ErrorIs(t, err, domain.ErrDiscountNotFound)
	})
}

func TestPaymentRepo_Integration(t *testing.T) {
	ctx := context.Background()
	payments := NewPaymentRepo(testPool)
	subs := NewSubscriptionRepo(testPool)
	tm := NewTxManager(testPool)

	newPayment := func(t *testing.T, p *model.Plan, authority string) *model.Payment {
		t.Helper()
		now := time.Now()
		sub, err := model.NewPendingSubscription(uuid.NewString(), 7, p, p.Price, now)
		require.NoError(t, err)
		require.NoError(t, subs.Save(ctx, nil, sub))
		pay := &model.Payment{
			ID:             uuid.NewString(),
			UserID:         7,
			PlanID:         p.ID,
			SubscriptionID: &sub.ID,
			Provider:       "zarinpal",
			Amount:         p.Price,
			FinalAmount:    p.Price,
			Currency:       "IRR",
			Status:         model.PaymentStatusPending,
			Authority:      authority,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, payments.Save(ctx, nil, pay))
		return pay
	}

	t.Run("should save and find a payment by authority", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		pay := newPayment(t, p, "A1")

		found, err := payments.FindByAuthority(ctx, nil, "A1")
		require.NoError(t, err)
		assert.Equal(t, pay.ID, found.ID)
		assert.Equal(t, model.PaymentStatusPending, found.Status)
	})

	t.Run("should reject a second payment with the same authority", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		newPayment(t, p, "A1")

		dup := *newPaymentTemplate(p)
		dup.Authority = "A1"
		err := payments.Save(ctx, nil, &dup)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("should reject a completed payment without ref id", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		pay := newPayment(t, p, "A1")
		pay.Status = model.PaymentStatusCompleted

		err := payments.Save(ctx, nil, pay)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})

	t.Run("should roll back every write when the transaction fails", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		pay := newPayment(t, p, "A1")

		err := tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
			locked, err := payments.FindByAuthority(ctx, tx, "A1")
			if err != nil {
				return err
			}
			if err := locked.MarkCompleted("R1", "", time.Now()); err != nil {
				return err
			}
			if err := payments.Save(ctx, tx, locked); err != nil {
				return err
			}
			return domain.ErrInvariantViolation
		})
		require.ErrorIs(t, err, domain.ErrInvariantViolation)

		found, err := payments.FindByID(ctx, nil, pay.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, found.Status)
		assert.Nil(t, found.RefID)
	})
}

func newPaymentTemplate(p *model.Plan) *model.Payment {
	now := time.Now()
	return &model.Payment{
		ID:          uuid.NewString(),
		UserID:      8,
		PlanID:      p.ID,
		Provider:    "zarinpal",
		Amount:      p.Price,
		FinalAmount: p.Price,
		Currency:    "IRR",
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSubscriptionRepo_Integration(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptionRepo(testPool)
	tm := NewTxManager(testPool)

	t.Run("should find only the live active subscription", func(t *testing.T) {
		cleanup(t)
		p := seedPlan(t, ctx)
		now := time.Now()

		expired, err := model.NewPendingSubscription(uuid.NewString(), 7, p, p.Price, now.Add(-60*24*time.Hour))
		require.NoError(t, err)
		expired.Status = model.SubscriptionStatusActive
		require.NoError(t, subs.Save(ctx, nil, expired))

		live, err := model.NewPendingSubscription(uuid.NewString(), 7, p, p.Price, now)
		require.NoError(t, err)
		live.Status = model.SubscriptionStatusActive
		require.NoError(t, subs.Save(ctx, nil, live))

		found, err := subs.FindActiveByUser(ctx, nil, 7, now)
		require.NoError(t, err)
		assert.Equal(t, live.ID, found.ID)

		_, err = subs.FindActiveByUser(ctx, nil, 8, now)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("should require a transaction for the user lock", func(t *testing.T) {
		cleanup(t)
		assert.ErrorIs(t, subs.LockUser(ctx, nil, 7), domain.ErrInvalidExecContext)

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return subs.LockUser(ctx, tx, 7)
		})
		assert.NoError(t, err)
	})
}

func TestProfileRepo_Integration(t *testing.T) {
	ctx := context.Background()
	profiles := NewProfileRepo(testPool)

	t.Run("should upsert and resolve a referral code", func(t *testing.T) {
		cleanup(t)
		referrer, err := model.NewProfile(1)
		require.NoError(t, err)
		require.NoError(t, profiles.Save(ctx, nil, referrer))

		p, err := model.NewProfile(2)
		require.NoError(t, err)
		require.True(t, p.AttachReferrer(referrer.UserID))
		p.GrantPremium(time.Now().Add(30 * 24 * time.Hour))
		require.NoError(t, profiles.Save(ctx, nil, p))

		found, err := profiles.FindByReferralCode(ctx, nil, referrer.ReferralCode)
		require.NoError(t, err)
		assert.Equal(t, int64(1), found.UserID)

		stored, err := profiles.FindByUserID(ctx, nil, 2)
		require.NoError(t, err)
		assert.Equal(t, model.RolePremium, stored.Role)
		require.NotNil(t, stored.ReferredBy)
		assert.Equal(t, int64(1), *stored.ReferredBy)
	})
}
