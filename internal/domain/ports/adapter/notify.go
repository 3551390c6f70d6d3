package adapter

import (
	"context"
	"time"
)

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
)

// PaymentEvent is handed to the notification fan-out after a terminal transition.
type PaymentEvent struct {
	Type            string     `json:"type"`
	PaymentID       string     `json:"payment_id"`
	UserID          int64      `json:"user_id"`
	PlanID          int64      `json:"plan_id"`
	Provider        string     `json:"provider"`
	Amount          int64      `json:"amount"`
	RefID           string     `json:"ref_id,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// EventPublisher is fire-and-forget from the caller's point of view.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, ev PaymentEvent) error
	Close()
}
