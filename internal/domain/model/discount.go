package model

import (
	"strings"
	"time"

	"medcontent-subscription/internal/domain"
)

// DiscountCode is a percentage discount with a bounded number of redemptions.
// UsageCount never decreases and never exceeds MaxUsage.
type DiscountCode struct {
	ID         int64
	Code       string // unique, upper-cased
	Percent    int    // 1..100
	MaxUsage   int
	UsageCount int
	StartAt    *time.Time
	EndAt      *time.Time
	IsActive   bool
	CreatedAt  time.Time
}

// NormalizeCode upper-cases and trims a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewDiscountCode validates and constructs an active code with zero usage.
func NewDiscountCode(code string, percent, maxUsage int, startAt, endAt *time.Time) (*DiscountCode, error) {
	code = NormalizeCode(code)
	if code == "" || percent < 1 || percent > 100 || maxUsage <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if startAt != nil && endAt != nil && startAt.After(*endAt) {
		return nil, domain.ErrInvalidArgument
	}
	return &DiscountCode{
		Code:      code,
		Percent:   percent,
		MaxUsage:  maxUsage,
		StartAt:   startAt,
		EndAt:     endAt,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}

// IsUsable reports whether the code can be redeemed at now.
func (d *DiscountCode) IsUsable(now time.Time) bool {
	if d == nil || !d.IsActive || d.UsageCount >= d.MaxUsage {
		return false
	}
	if d.StartAt != nil && now.Before(*d.StartAt) {
		return false
	}
	if d.EndAt != nil && now.After(*d.EndAt) {
		return false
	}
	return true
}

func (d *DiscountCode) RemainingUsage() int {
	if d.UsageCount >= d.MaxUsage {
		return 0
	}
	return d.MaxUsage - d.UsageCount
}

// UsagePercentage is the share of redemptions consumed, 0..100.
func (d *DiscountCode) UsagePercentage() float64 {
	if d.MaxUsage <= 0 {
		return 0
	}
	return float64(d.UsageCount) / float64(d.MaxUsage) * 100
}

// Apply returns the discount amount and the payable amount for price.
// Integer division floors the discount; the payable amount never goes negative.
func (d *DiscountCode) Apply(price int64) (discount, final int64) {
	if d == nil {
		return 0, price
	}
	discount = price * int64(d.Percent) / 100
	final = price - discount
	if final < 0 {
		final = 0
	}
	return discount, final
}
