package model

import (
	"fmt"
	"time"

	"medcontent-subscription/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// Subscription is one purchase lifecycle. EndDate is always after StartDate.
// At most one row per user is ACTIVE with an EndDate in the future.
type Subscription struct {
	ID            string // UUID
	UserID        int64
	PlanID        int64
	PaymentAmount int64
	Status        SubscriptionStatus
	StartDate     time.Time
	EndDate       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPendingSubscription drafts the subscription a payment will fund.
// Dates are provisional until the payment is finalized.
func NewPendingSubscription(id string, userID int64, plan *Plan, amount int64, now time.Time) (*Subscription, error) {
	if id == "" || userID <= 0 || plan.IsZero() || plan.DurationDays <= 0 || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:            id,
		UserID:        userID,
		PlanID:        plan.ID,
		PaymentAmount: amount,
		Status:        SubscriptionStatusPending,
		StartDate:     now,
		EndDate:       now.Add(plan.Duration()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsActive is derived, never stored.
func (s *Subscription) IsActive(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && s.EndDate.After(now)
}

// Cancel closes a draft that will never be funded.
func (s *Subscription) Cancel(at time.Time) error {
	if s.Status != SubscriptionStatusPending {
		return fmt.Errorf("%w: cancel subscription %s in status %s", domain.ErrInvariantViolation, s.ID, s.Status)
	}
	s.Status = SubscriptionStatusCanceled
	s.UpdatedAt = at
	return nil
}

// ExtendOrActivate applies a verified purchase of plan to the user's
// subscriptions. When the user still has a live window in active, that window
// is lengthened by the plan duration and draft is retired as EXPIRED with the
// same end date. Otherwise draft becomes the live ACTIVE row starting at now.
// It returns the subscription that now carries the entitlement and whether an
// extension happened. Both rows are mutated in place; the caller persists them.
func ExtendOrActivate(now time.Time, draft, active *Subscription, plan *Plan) (*Subscription, bool, error) {
	if draft == nil || plan.IsZero() || plan.DurationDays <= 0 {
		return nil, false, fmt.Errorf("%w: extend-or-activate without draft or plan", domain.ErrInvariantViolation)
	}
	if draft.Status != SubscriptionStatusPending {
		return nil, false, fmt.Errorf("%w: subscription %s is %s, want PENDING", domain.ErrInvariantViolation, draft.ID, draft.Status)
	}
	if active != nil && active.ID != draft.ID && active.IsActive(now) {
		if active.UserID != draft.UserID {
			return nil, false, fmt.Errorf("%w: subscription %s belongs to another user", domain.ErrInvariantViolation, active.ID)
		}
		active.EndDate = active.EndDate.Add(plan.Duration())
		active.UpdatedAt = now

		draft.Status = SubscriptionStatusExpired
		draft.StartDate = now
		draft.EndDate = active.EndDate
		draft.UpdatedAt = now
		return active, true, nil
	}

	draft.Status = SubscriptionStatusActive
	draft.StartDate = now
	draft.EndDate = now.Add(plan.Duration())
	draft.UpdatedAt = now
	return draft, false, nil
}
