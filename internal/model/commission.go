package model

// CommissionRule is resolved from the membership or product at
// settlement time and frozen into the conversion record. It is never
// cached on the transaction: rates may change between purchase and a
// settlement retry.
type CommissionRule struct {
	Type CommissionType `json:"type"`
	Rate int64          `json:"rate"`
}

type CommissionRole string

const (
	CommissionRoleAffiliate CommissionRole = "AFFILIATE"
	CommissionRoleAdmin     CommissionRole = "ADMIN"
	CommissionRoleFounder   CommissionRole = "FOUNDER"
	CommissionRoleCoFounder CommissionRole = "COFOUNDER"
)

type CommissionSplit struct {
	UserID int64          `json:"user_id"`
	Role   CommissionRole `json:"role"`
	Amount int64          `json:"amount"`
}

// DistributionResult is the outcome of one commission distribution.
// Replayed marks an idempotent re-invocation that returned the
// previously persisted split.
type DistributionResult struct {
	Splits     []CommissionSplit    `json:"splits"`
	Conversion *AffiliateConversion `json:"conversion,omitempty"`
	Replayed   bool                 `json:"replayed"`
}

func (d *DistributionResult) Total() int64 {
	var sum int64
	for _, s := range d.Splits {
		sum += s.Amount
	}
	return sum
}
