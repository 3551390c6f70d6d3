package model

import "time"

// Quote is a priced, not yet paid purchase intent. It lives only in the
// quote store and expires with it.
type Quote struct {
	PlanID          int64     `json:"planID"`
	PlanName        string    `json:"planName"`
	DurationDays    int       `json:"durationDays"`
	OriginalPrice   int64     `json:"originalPrice"`
	DiscountPercent int       `json:"discountPercent,omitempty"`
	DiscountAmount  int64     `json:"discountAmount"`
	FinalPrice      int64     `json:"finalPrice"`
	DiscountCode    string    `json:"discountCode,omitempty"`
	ReferralCode    string    `json:"referralCode,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
