//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
)

// --- Plan ---

func TestNewPlan(t *testing.T) {
	t.Run("should create an active plan", func(t *testing.T) {
		p, err := NewPlan(1, "  Monthly  ", 30, 150000)
		require.NoError(t, err)
		assert.Equal(t, "Monthly", p.Name)
		assert.True(t, p.IsActive)
		assert.Equal(t, 30*24*time.Hour, p.Duration())
	})

	t.Run("should reject non-positive duration and negative price", func(t *testing.T) {
		_, err := NewPlan(1, "x", 0, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = NewPlan(1, "x", 10, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

// --- DiscountCode ---

func TestDiscountCode_IsUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		code DiscountCode
		want bool
	}{
		{"active with remaining usage", DiscountCode{IsActive: true, MaxUsage: 2, UsageCount: 1}, true},
		{"inactive", DiscountCode{IsActive: false, MaxUsage: 2}, false},
		{"exhausted", DiscountCode{IsActive: true, MaxUsage: 2, UsageCount: 2}, false},
		{"not started", DiscountCode{IsActive: true, MaxUsage: 2, StartAt: &future}, false},
		{"ended", DiscountCode{IsActive: true, MaxUsage: 2, EndAt: &past}, false},
		{"inside window", DiscountCode{IsActive: true, MaxUsage: 2, StartAt: &past, EndAt: &future}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.code.IsUsable(now))
		})
	}
}

func TestDiscountCode_Apply(t *testing.T) {
	t.Run("should floor the discount", func(t *testing.T) {
		d := &DiscountCode{Percent: 15}
		discount, final := d.Apply(99999)
		assert.Equal(t, int64(14999), discount)
		assert.Equal(t, int64(85000), final)
	})

	t.Run("should allow a full discount", func(t *testing.T) {
		d := &DiscountCode{Percent: 100}
		discount, final := d.Apply(150000)
		assert.Equal(t, int64(150000), discount)
		assert.Zero(t, final)
	})

	t.Run("nil code leaves the price untouched", func(t *testing.T) {
		var d *DiscountCode
		discount, final := d.Apply(500)
		assert.Zero(t, discount)
		assert.Equal(t, int64(500), final)
	})
}

func TestNewDiscountCode(t *testing.T) {
	t.Run("should normalize the code", func(t *testing.T) {
		d, err := NewDiscountCode(" spring20 ", 20, 5, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "SPRING20", d.Code)
		assert.Equal(t, 5, d.RemainingUsage())
		assert.Zero(t, d.UsagePercentage())
	})

	t.Run("should reject an inverted window", func(t *testing.T) {
		start := time.Now()
		end := start.Add(-time.Minute)
		_, err := NewDiscountCode("X", 10, 1, &start, &end)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("should reject percent outside 1..100", func(t *testing.T) {
		_, err := NewDiscountCode("X", 0, 1, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		_, err = NewDiscountCode("X", 101, 1, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

// --- Payment ---

func TestPayment_Transitions(t *testing.T) {
	now := time.Now()

	t.Run("should complete a pending payment", func(t *testing.T) {
		p := &Payment{ID: "p1", Amount: 100, FinalAmount: 100, Status: PaymentStatusPending}
		require.NoError(t, p.MarkCompleted("R99", "6037****1234", now))
		assert.Equal(t, PaymentStatusCompleted, p.Status)
		require.NotNil(t, p.RefID)
		assert.Equal(t, "R99", *p.RefID)
		assert.NoError(t, p.Validate())
	})

	t.Run("completed is terminal", func(t *testing.T) {
		p := &Payment{ID: "p1", Status: PaymentStatusPending}
		require.NoError(t, p.MarkCompleted("R1", "", now))
		err := p.MarkCompleted("R2", "", now)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
		assert.ErrorIs(t, p.MarkFailed("late", now), domain.ErrInvariantViolation)
		assert.Equal(t, "R1", *p.RefID)
	})

	t.Run("should refuse an empty ref id", func(t *testing.T) {
		p := &Payment{ID: "p1", Status: PaymentStatusPending}
		assert.ErrorIs(t, p.MarkCompleted("", "", now), domain.ErrInvariantViolation)
		assert.Equal(t, PaymentStatusPending, p.Status)
	})

	t.Run("validate flags a ref id without completion", func(t *testing.T) {
		ref := "R1"
		p := &Payment{ID: "p1", Status: PaymentStatusFailed, RefID: &ref}
		assert.True(t, errors.Is(p.Validate(), domain.ErrInvariantViolation))
	})

	t.Run("should cancel a pending payment", func(t *testing.T) {
		p := &Payment{ID: "p1", Status: PaymentStatusPending}
		require.NoError(t, p.MarkCancelled("user aborted", now))
		assert.Equal(t, PaymentStatusCancelled, p.Status)
		assert.True(t, p.Status.IsTerminal())
	})
}

// --- Subscription ---

func TestExtendOrActivate(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	plan := &Plan{ID: 3, DurationDays: 30}

	t.Run("should activate the draft when nothing is active", func(t *testing.T) {
		draft, err := NewPendingSubscription("s-new", 42, plan, 150000, now.Add(-time.Minute))
		require.NoError(t, err)

		eff, extended, err := ExtendOrActivate(now, draft, nil, plan)

		require.NoError(t, err)
		assert.False(t, extended)
		assert.Same(t, draft, eff)
		assert.Equal(t, SubscriptionStatusActive, draft.Status)
		assert.Equal(t, now, draft.StartDate)
		assert.Equal(t, now.AddDate(0, 0, 30), draft.EndDate)
	})

	t.Run("should extend the live window instead of starting a second one", func(t *testing.T) {
		d0 := now.AddDate(0, 0, 12)
		active := &Subscription{ID: "s-old", UserID: 42, Status: SubscriptionStatusActive, StartDate: now.AddDate(0, 0, -18), EndDate: d0}
		draft, _ := NewPendingSubscription("s-new", 42, plan, 150000, now)

		eff, extended, err := ExtendOrActivate(now, draft, active, plan)

		require.NoError(t, err)
		assert.True(t, extended)
		assert.Same(t, active, eff)
		assert.Equal(t, d0.AddDate(0, 0, 30), active.EndDate)
		assert.Equal(t, SubscriptionStatusExpired, draft.Status)
		assert.Equal(t, active.EndDate, draft.EndDate)
		assert.True(t, draft.EndDate.After(draft.StartDate))
	})

	t.Run("an elapsed active row is not extended", func(t *testing.T) {
		stale := &Subscription{ID: "s-old", UserID: 42, Status: SubscriptionStatusActive, EndDate: now.Add(-time.Hour)}
		draft, _ := NewPendingSubscription("s-new", 42, plan, 1, now)

		eff, extended, err := ExtendOrActivate(now, draft, stale, plan)

		require.NoError(t, err)
		assert.False(t, extended)
		assert.Same(t, draft, eff)
		assert.Equal(t, now.Add(-time.Hour), stale.EndDate)
	})

	t.Run("should refuse a draft that is no longer pending", func(t *testing.T) {
		draft := &Subscription{ID: "s-new", UserID: 42, Status: SubscriptionStatusActive}
		_, _, err := ExtendOrActivate(now, draft, nil, plan)
		assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	})
}

// --- Profile ---

func TestProfile(t *testing.T) {
	t.Run("new profile is free with a referral code", func(t *testing.T) {
		p, err := NewProfile(42)
		require.NoError(t, err)
		assert.Equal(t, RoleFree, p.Role)
		assert.Len(t, p.ReferralCode, 8)
	})

	t.Run("referrer is set once and never to self", func(t *testing.T) {
		p, _ := NewProfile(42)
		assert.False(t, p.AttachReferrer(42))
		assert.True(t, p.AttachReferrer(7))
		assert.False(t, p.AttachReferrer(8))
		assert.Equal(t, int64(7), *p.ReferredBy)
	})
}
