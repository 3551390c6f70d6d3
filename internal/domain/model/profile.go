package model

import (
	"crypto/rand"
	"time"

	"medcontent-subscription/internal/domain"
)

type Role string

const (
	RoleFree    Role = "free"
	RolePremium Role = "premium"
)

// Profile is the user's entitlement projection. Role and SubscriptionEndDate
// mirror the user's current active subscription.
type Profile struct {
	UserID              int64
	Role                Role
	SubscriptionEndDate *time.Time
	ReferralCode        string
	ReferredBy          *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewProfile builds a free profile with a fresh referral code.
func NewProfile(userID int64) (*Profile, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	code, err := GenerateCode(8)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Profile{
		UserID:       userID,
		Role:         RoleFree,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GrantPremium applies an entitlement window ending at end.
func (p *Profile) GrantPremium(end time.Time) {
	p.Role = RolePremium
	p.SubscriptionEndDate = &end
	p.UpdatedAt = time.Now()
}

// AttachReferrer records the referrer once. It reports whether it changed anything.
func (p *Profile) AttachReferrer(referrerID int64) bool {
	if p.ReferredBy != nil || referrerID == p.UserID || referrerID <= 0 {
		return false
	}
	p.ReferredBy = &referrerID
	p.UpdatedAt = time.Now()
	return true
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a random upper-case alphanumeric code of length n.
func GenerateCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}
