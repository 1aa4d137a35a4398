package repository

import (
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type PayoutEntity struct {
	ID             int64      `gorm:"primaryKey;autoIncrement;column:id"`
	WalletID       int64      `gorm:"column:wallet_id;not null;index"`
	UserID         int64      `gorm:"column:user_id;not null;index"`
	Amount         int64      `gorm:"column:amount;not null"`
	Fee            int64      `gorm:"column:fee;not null;default:0"`
	NetAmount      int64      `gorm:"column:net_amount;not null"`
	Provider       string     `gorm:"column:provider;not null"`
	AccountNumber  string     `gorm:"column:account_number;not null"`
	AccountName    string     `gorm:"column:account_name"`
	Status         string     `gorm:"column:status;not null;index"`
	ExternalID     string     `gorm:"column:external_id;uniqueIndex;not null"`
	DisbursementID string     `gorm:"column:disbursement_id;index"`
	FailureReason  string     `gorm:"column:failure_reason"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt    *time.Time `gorm:"column:processed_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
}

func (PayoutEntity) TableName() string {
	return "payouts"
}

func toPayoutEntity(m *model.Payout) *PayoutEntity {
	if m == nil {
		return nil
	}
	return &PayoutEntity{
		ID:             m.ID,
		WalletID:       m.WalletID,
		UserID:         m.UserID,
		Amount:         m.Amount,
		Fee:            m.Fee,
		NetAmount:      m.NetAmount,
		Provider:       m.Provider,
		AccountNumber:  m.AccountNumber,
		AccountName:    m.AccountName,
		Status:         string(m.Status),
		ExternalID:     m.ExternalID,
		DisbursementID: m.DisbursementID,
		FailureReason:  m.FailureReason,
		CreatedAt:      m.CreatedAt,
		ProcessedAt:    m.ProcessedAt,
		CompletedAt:    m.CompletedAt,
	}
}

func toPayoutModel(e *PayoutEntity) *model.Payout {
	if e == nil {
		return nil
	}
	return &model.Payout{
		ID:             e.ID,
		WalletID:       e.WalletID,
		UserID:         e.UserID,
		Amount:         e.Amount,
		Fee:            e.Fee,
		NetAmount:      e.NetAmount,
		Provider:       e.Provider,
		AccountNumber:  e.AccountNumber,
		AccountName:    e.AccountName,
		Status:         model.PayoutStatus(e.Status),
		ExternalID:     e.ExternalID,
		DisbursementID: e.DisbursementID,
		FailureReason:  e.FailureReason,
		CreatedAt:      e.CreatedAt,
		ProcessedAt:    e.ProcessedAt,
		CompletedAt:    e.CompletedAt,
	}
}
