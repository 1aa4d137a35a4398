package model

import "time"

// Wallet keeps a per-user running balance. Balance is a materialized
// cache of the entry sum and must never go negative; the repository
// enforces both with guarded atomic updates.
type Wallet struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Balance        int64     `json:"balance"`
	BalancePending int64     `json:"balance_pending"`
	TotalEarnings  int64     `json:"total_earnings"`
	TotalPayout    int64     `json:"total_payout"`
	CreatedAt      time.Time `json:"created_at"`
}

type WalletEntryType string

const (
	WalletEntryCommission      WalletEntryType = "COMMISSION"
	WalletEntryWithdrawal      WalletEntryType = "WITHDRAWAL"
	WalletEntryPayoutCompleted WalletEntryType = "PAYOUT_COMPLETED"
	WalletEntryPayoutRefund    WalletEntryType = "PAYOUT_REFUND"
)

// WalletEntry is an immutable append-only record of one balance
// delta. Amount is signed; the entries are the source of truth.
type WalletEntry struct {
	ID            int64           `json:"id"`
	WalletID      int64           `json:"wallet_id"`
	Type          WalletEntryType `json:"type"`
	Amount        int64           `json:"amount"`
	Reference     string          `json:"reference"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	PayoutID      *int64          `json:"payout_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
