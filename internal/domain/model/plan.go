package model

import (
	"strings"
	"time"

	"medcontent-subscription/internal/domain"
)

// Membership is the access tier a plan grants.
type Membership struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Plan is a purchasable offer with a fixed duration and a price in IRR.
// Once a subscription references a plan it must not be changed or removed.
type Plan struct {
	ID           int64
	MembershipID int64
	Name         string
	DurationDays int
	Price        int64 // rials
	IsActive     bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

// Duration is the entitlement window the plan grants.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// NewPlan validates and constructs a plan. The ID is assigned by storage.
func NewPlan(membershipID int64, name string, durationDays int, price int64) (*Plan, error) {
	name = strings.TrimSpace(name)
	if membershipID <= 0 || name == "" || durationDays <= 0 || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		MembershipID: membershipID,
		Name:         name,
		DurationDays: durationDays,
		Price:        price,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}, nil
}
