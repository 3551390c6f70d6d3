//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/usecase"
)

func TestPricing_Quote(t *testing.T) {
	ctx := context.Background()

	t.Run("should store an undiscounted quote", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)

		// --- Act ---
		q, err := f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID})

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, testPrice, q.OriginalPrice)
		assert.Equal(t, testPrice, q.FinalPrice)
		assert.Zero(t, q.DiscountAmount)
		stored, err := f.quotes.Get(ctx, testUserID, testPlanID)
		require.NoError(t, err)
		assert.Equal(t, "Monthly", stored.PlanName)
		assert.Equal(t, testDuration, stored.DurationDays)
	})

	t.Run("should apply a discount and consume one redemption", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		d, err := model.NewDiscountCode("spring20", 20, 10, nil, nil)
		require.NoError(t, err)
		require.NoError(t, f.discounts.Save(ctx, nil, d))

		// --- Act ---
		q, err := f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID, DiscountCode: " Spring20 "})

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, int64(30000), q.DiscountAmount)
		assert.Equal(t, int64(120000), q.FinalPrice)
		assert.Equal(t, "SPRING20", q.DiscountCode)
		after, _ := f.discounts.FindByCode(ctx, nil, "SPRING20")
		assert.Equal(t, 1, after.UsageCount)
	})

	t.Run("discount errors are user recoverable", func(t *testing.T) {
		f := newFixture(t)
		past := time.Now().Add(-time.Hour)
		expired, err := model.NewDiscountCode("OLD", 10, 5, nil, &past)
		require.NoError(t, err)
		require.NoError(t, f.discounts.Save(ctx, nil, expired))
		used, err := model.NewDiscountCode("USED", 10, 1, nil, nil)
		require.NoError(t, err)
		used.UsageCount = 1
		require.NoError(t, f.discounts.Save(ctx, nil, used))

		cases := []struct {
			code string
			want error
		}{
			{"NOPE", domain.ErrDiscountNotFound},
			{"OLD", domain.ErrDiscountNotUsable},
			{"USED", domain.ErrDiscountNotUsable},
		}
		for _, tc := range cases {
			_, err := f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID, DiscountCode: tc.code})
			assert.ErrorIs(t, err, tc.want, tc.code)
			assert.Equal(t, domain.KindUserRecoverable, domain.Classify(err), tc.code)
		}
		_, err = f.quotes.Get(ctx, testUserID, testPlanID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("a discount covering the whole price is refused without using a redemption", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(t)
		full, err := model.NewDiscountCode("FREE100", 100, 3, nil, nil)
		require.NoError(t, err)
		require.NoError(t, f.discounts.Save(ctx, nil, full))

		// --- Act ---
		_, err = f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID, DiscountCode: "free100"})

		// --- Assert ---
		assert.ErrorIs(t, err, domain.ErrAmountTooLow)
		assert.Equal(t, domain.KindUserRecoverable, domain.Classify(err))
		after, err := f.discounts.FindByCode(ctx, nil, "FREE100")
		require.NoError(t, err)
		assert.Zero(t, after.UsageCount)
		_, err = f.quotes.Get(ctx, testUserID, testPlanID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("own or unknown referral code is rejected before the discount is consumed", func(t *testing.T) {
		f := newFixture(t)
		own, err := model.NewProfile(testUserID)
		require.NoError(t, err)
		require.NoError(t, f.profiles.Save(ctx, nil, own))
		d, _ := model.NewDiscountCode("ONE", 50, 1, nil, nil)
		require.NoError(t, f.discounts.Save(ctx, nil, d))

		_, err = f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID, DiscountCode: "ONE", ReferralCode: own.ReferralCode})
		assert.ErrorIs(t, err, domain.ErrReferralInvalid)
		_, err = f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: testPlanID, DiscountCode: "ONE", ReferralCode: "UNKNOWN1"})
		assert.ErrorIs(t, err, domain.ErrReferralInvalid)

		after, _ := f.discounts.FindByCode(ctx, nil, "ONE")
		assert.Zero(t, after.UsageCount)
	})

	t.Run("plan checks", func(t *testing.T) {
		f := newFixture(t)
		plan, _ := f.plans.FindByID(ctx, nil, 1)
		plan.IsActive = false
		require.NoError(t, f.plans.Save(ctx, nil, plan))

		_, err := f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: 1})
		assert.ErrorIs(t, err, domain.ErrPlanInactive)
		_, err = f.pricing.Quote(ctx, usecase.QuoteInput{UserID: testUserID, PlanID: 99})
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
		_, err = f.pricing.Preview(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}

func TestPricing_Preview(t *testing.T) {
	f := newFixture(t)

	q, err := f.pricing.Preview(context.Background(), testPlanID)

	require.NoError(t, err)
	assert.Equal(t, testPrice, q.FinalPrice)
	_, err = f.quotes.Get(context.Background(), 0, testPlanID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPricing_DiscountRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d, err := model.NewDiscountCode("LAST5", 10, 5, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.discounts.Save(ctx, nil, d))

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := f.pricing.Quote(ctx, usecase.QuoteInput{UserID: user, PlanID: testPlanID, DiscountCode: "LAST5"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrDiscountExhausted), errors.Is(err, domain.ErrDiscountNotUsable):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, n-5, exhausted)
	after, _ := f.discounts.FindByCode(ctx, nil, "LAST5")
	assert.Equal(t, after.MaxUsage, after.UsageCount)
}
