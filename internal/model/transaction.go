package model

import (
	"errors"
	"time"
)

// TransactionStatus is the lifecycle state of a transaction. Terminal
// states never revert.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

type TransactionType string

const (
	TransactionTypeMembership         TransactionType = "MEMBERSHIP"
	TransactionTypeProduct            TransactionType = "PRODUCT"
	TransactionTypeEvent              TransactionType = "EVENT"
	TransactionTypeWithdrawal         TransactionType = "WITHDRAWAL"
	TransactionTypeSupplierMembership TransactionType = "SUPPLIER_MEMBERSHIP"
)

// Transaction is the settlement unit. Amounts are rupiah (no
// sub-unit). Reference is the external payment id and doubles as the
// idempotency key against the payment gateway.
type Transaction struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"user_id"`
	Amount         int64             `json:"amount"`
	OriginalAmount int64             `json:"original_amount"`
	DiscountAmount int64             `json:"discount_amount"`
	Type           TransactionType   `json:"type"`
	Status         TransactionStatus `json:"status"`
	Reference      string            `json:"reference"`
	MembershipID   *int64            `json:"membership_id,omitempty"`
	ProductID      *int64            `json:"product_id,omitempty"`
	CouponID       *int64            `json:"coupon_id,omitempty"`
	AffiliateID    *int64            `json:"affiliate_id,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (t *Transaction) IsSettled() bool {
	return t.Status == TransactionStatusSuccess
}

// CheckoutPayload is the sealed per-type payload of a settlement
// request; the variant decides which entitlement flow runs.
type CheckoutPayload interface {
	checkoutPayload()
}

type MembershipCheckout struct {
	MembershipID  int64  `json:"membership_id"`
	AffiliateCode string `json:"affiliate_code,omitempty"`
	CouponID      *int64 `json:"coupon_id,omitempty"`
}

type ProductCheckout struct {
	ProductID     int64  `json:"product_id"`
	AffiliateCode string `json:"affiliate_code,omitempty"`
}

// EventCheckout settles payment only; event seats are granted by the
// events module outside this engine.
type EventCheckout struct {
	EventID int64 `json:"event_id"`
}

func (MembershipCheckout) checkoutPayload() {}
func (ProductCheckout) checkoutPayload()    {}
func (EventCheckout) checkoutPayload()      {}

// SettlementRequest is the checkout-success trigger.
type SettlementRequest struct {
	TransactionID int64
	Reference     string
	Payload       CheckoutPayload
}

func (r SettlementRequest) Validate() error {
	if r.TransactionID == 0 && r.Reference == "" {
		return errors.New("transaction_id or reference is required")
	}
	return nil
}
