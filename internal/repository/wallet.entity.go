package repository

import (
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type WalletEntity struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int64     `gorm:"column:user_id;uniqueIndex;not null"`
	Balance        int64     `gorm:"column:balance;not null;default:0"`
	BalancePending int64     `gorm:"column:balance_pending;not null;default:0"`
	TotalEarnings  int64     `gorm:"column:total_earnings;not null;default:0"`
	TotalPayout    int64     `gorm:"column:total_payout;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WalletEntity) TableName() string {
	return "wallets"
}

// The partial unique index pins at most one COMMISSION entry per
// (transaction, wallet). It is the authority behind the replay guard
// in the commission distribution path.
type WalletEntryEntity struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	WalletID      int64     `gorm:"column:wallet_id;not null;index;uniqueIndex:uq_wallet_entries_commission"`
	Type          string    `gorm:"column:type;not null"`
	Amount        int64     `gorm:"column:amount;not null"`
	Reference     string    `gorm:"column:reference;not null"`
	TransactionID *int64    `gorm:"column:transaction_id;index;uniqueIndex:uq_wallet_entries_commission,where:type = 'COMMISSION'"`
	PayoutID      *int64    `gorm:"column:payout_id;index"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WalletEntryEntity) TableName() string {
	return "wallet_entries"
}

func toWalletModel(e *WalletEntity) *model.Wallet {
	if e == nil {
		return nil
	}
	return &model.Wallet{
		ID:             e.ID,
		UserID:         e.UserID,
		Balance:        e.Balance,
		BalancePending: e.BalancePending,
		TotalEarnings:  e.TotalEarnings,
		TotalPayout:    e.TotalPayout,
		CreatedAt:      e.CreatedAt,
	}
}

func toWalletEntryEntity(m *model.WalletEntry) *WalletEntryEntity {
	if m == nil {
		return nil
	}
	return &WalletEntryEntity{
		ID:            m.ID,
		WalletID:      m.WalletID,
		Type:          string(m.Type),
		Amount:        m.Amount,
		Reference:     m.Reference,
		TransactionID: m.TransactionID,
		PayoutID:      m.PayoutID,
		CreatedAt:     m.CreatedAt,
	}
}

func toWalletEntryModel(e *WalletEntryEntity) *model.WalletEntry {
	if e == nil {
		return nil
	}
	return &model.WalletEntry{
		ID:            e.ID,
		WalletID:      e.WalletID,
		Type:          model.WalletEntryType(e.Type),
		Amount:        e.Amount,
		Reference:     e.Reference,
		TransactionID: e.TransactionID,
		PayoutID:      e.PayoutID,
		CreatedAt:     e.CreatedAt,
	}
}

func toWalletEntryModels(entities []*WalletEntryEntity) []*model.WalletEntry {
	if entities == nil {
		return nil
	}
	models := make([]*model.WalletEntry, len(entities))
	for i, e := range entities {
		models[i] = toWalletEntryModel(e)
	}
	return models
}
