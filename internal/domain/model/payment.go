package model

import (
	"fmt"
	"time"

	"medcontent-subscription/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // gateway request issued; awaiting verification
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // verified at provider; terminal
	PaymentStatusFailed    PaymentStatus = "FAILED"    // provider rejected or verify failed; terminal
	PaymentStatusCancelled PaymentStatus = "CANCELLED" // user aborted at the gateway; terminal
)

func (s PaymentStatus) IsTerminal() bool { return s != PaymentStatusPending }

const CurrencyIRR = "IRR"

// Payment is one gateway attempt. RefID is set if and only if the payment is
// COMPLETED, and a COMPLETED payment never changes again.
type Payment struct {
	ID             string // UUID
	UserID         int64
	PlanID         int64
	SubscriptionID *string // draft subscription this payment funds
	Provider       string  // gateway name, e.g. "zarinpal"
	Amount         int64   // plan price in rials
	DiscountAmount int64
	FinalAmount    int64 // what the gateway charges, in rials
	Currency       string
	Status         PaymentStatus
	Authority      string  // gateway correlation token (authority / order id)
	RefID          *string // gateway settlement proof (ref id / receipt number)
	CardInfo       string  // masked card number when the provider reports it
	DiscountCode   string
	ReferralCode   string
	Description    string
	UserIP         string
	UserAgent      string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}

// Validate checks the invariants that must hold for any stored payment.
func (p *Payment) Validate() error {
	switch {
	case p.Amount < 0 || p.DiscountAmount < 0 || p.FinalAmount < 0:
		return fmt.Errorf("%w: negative amount on payment %s", domain.ErrInvariantViolation, p.ID)
	case p.FinalAmount > p.Amount:
		return fmt.Errorf("%w: final amount exceeds price on payment %s", domain.ErrInvariantViolation, p.ID)
	case (p.RefID != nil) != (p.Status == PaymentStatusCompleted):
		return fmt.Errorf("%w: ref id / status mismatch on payment %s", domain.ErrInvariantViolation, p.ID)
	}
	return nil
}

// MarkCompleted moves a pending payment to COMPLETED with the gateway proof.
func (p *Payment) MarkCompleted(refID, cardInfo string, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return fmt.Errorf("%w: complete payment %s in status %s", domain.ErrInvariantViolation, p.ID, p.Status)
	}
	if refID == "" {
		return fmt.Errorf("%w: empty ref id for payment %s", domain.ErrInvariantViolation, p.ID)
	}
	p.Status = PaymentStatusCompleted
	p.RefID = &refID
	p.CardInfo = cardInfo
	p.PaidAt = &at
	p.UpdatedAt = at
	p.FailureReason = ""
	return nil
}

// MarkFailed closes a pending payment as FAILED.
func (p *Payment) MarkFailed(reason string, at time.Time) error {
	return p.close(PaymentStatusFailed, reason, at)
}

// MarkCancelled closes a pending payment as CANCELLED.
func (p *Payment) MarkCancelled(reason string, at time.Time) error {
	return p.close(PaymentStatusCancelled, reason, at)
}

func (p *Payment) close(status PaymentStatus, reason string, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return fmt.Errorf("%w: close payment %s in status %s", domain.ErrInvariantViolation, p.ID, p.Status)
	}
	p.Status = status
	p.FailureReason = reason
	p.UpdatedAt = at
	return nil
}
