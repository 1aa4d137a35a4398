package model

import "time"

// AffiliateProfile is one per user who opted into the program.
// Running aggregates are mutated only by the commission engine and
// click tracking.
type AffiliateProfile struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Code             string    `json:"code"`
	Tier             int       `json:"tier"`
	CommissionRate   int64     `json:"commission_rate"` // percentage fallback
	TotalEarnings    int64     `json:"total_earnings"`
	TotalConversions int64     `json:"total_conversions"`
	TotalClicks      int64     `json:"total_clicks"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// AffiliateIdentity is the resolved attribution for a settlement.
type AffiliateIdentity struct {
	AffiliateID int64
	UserID      int64
	Code        string
}

// AffiliateConversion records the commission earned on one
// transaction. transaction_id is unique: at most one conversion per
// transaction. Only the paid-out transition mutates it afterwards.
type AffiliateConversion struct {
	ID               int64          `json:"id"`
	AffiliateID      int64          `json:"affiliate_id"`
	TransactionID    int64          `json:"transaction_id"`
	CommissionAmount int64          `json:"commission_amount"`
	CommissionRate   int64          `json:"commission_rate"`
	CommissionType   CommissionType `json:"commission_type"`
	PaidOut          bool           `json:"paid_out"`
	PaidOutAt        *time.Time     `json:"paid_out_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
