package model

import (
	"errors"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusCancelled  PayoutStatus = "CANCELLED"
)

// Payout is a withdrawal request. Status only advances via operator
// approval or gateway webhook; CANCELLED triggers the refund path.
type Payout struct {
	ID             int64        `json:"id"`
	WalletID       int64        `json:"wallet_id"`
	UserID         int64        `json:"user_id"`
	Amount         int64        `json:"amount"`
	Fee            int64        `json:"fee"`
	NetAmount      int64        `json:"net_amount"`
	Provider       string       `json:"provider"`
	AccountNumber  string       `json:"account_number"`
	AccountName    string       `json:"account_name"`
	Status         PayoutStatus `json:"status"`
	ExternalID     string       `json:"external_id"` // idempotency key sent to the gateway
	DisbursementID string       `json:"disbursement_id,omitempty"`
	FailureReason  string       `json:"failure_reason,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ProcessedAt    *time.Time   `json:"processed_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// WithdrawalRequest is the user-facing withdrawal input.
type WithdrawalRequest struct {
	Provider      string `json:"provider"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Amount        int64  `json:"amount"`
	PIN           string `json:"pin"`
}

func (r WithdrawalRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.AccountNumber == "" {
		return errors.New("account_number is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// DisbursementEvent is the inbound webhook payload from the payout
// gateway.
type DisbursementEvent struct {
	ID            string `json:"id"`
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"` // COMPLETED | FAILED | PENDING
	FailureReason string `json:"failure_reason,omitempty"`
}
