package repository

import (
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type TransactionEntity struct {
	ID             int64      `gorm:"primaryKey;autoIncrement;column:id"`
	UserID         int64      `gorm:"column:user_id;not null;index"`
	Amount         int64      `gorm:"column:amount;not null"`
	OriginalAmount int64      `gorm:"column:original_amount;not null"`
	DiscountAmount int64      `gorm:"column:discount_amount;not null;default:0"`
	Type           string     `gorm:"column:type;not null"`
	Status         string     `gorm:"column:status;not null;index"`
	Reference      string     `gorm:"column:reference;uniqueIndex;not null"`
	MembershipID   *int64     `gorm:"column:membership_id;index"`
	ProductID      *int64     `gorm:"column:product_id;index"`
	CouponID       *int64     `gorm:"column:coupon_id"`
	AffiliateID    *int64     `gorm:"column:affiliate_id;index"`
	PaidAt         *time.Time `gorm:"column:paid_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:             m.ID,
		UserID:         m.UserID,
		Amount:         m.Amount,
		OriginalAmount: m.OriginalAmount,
		DiscountAmount: m.DiscountAmount,
		Type:           string(m.Type),
		Status:         string(m.Status),
		Reference:      m.Reference,
		MembershipID:   m.MembershipID,
		ProductID:      m.ProductID,
		CouponID:       m.CouponID,
		AffiliateID:    m.AffiliateID,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:             e.ID,
		UserID:         e.UserID,
		Amount:         e.Amount,
		OriginalAmount: e.OriginalAmount,
		DiscountAmount: e.DiscountAmount,
		Type:           model.TransactionType(e.Type),
		Status:         model.TransactionStatus(e.Status),
		Reference:      e.Reference,
		MembershipID:   e.MembershipID,
		ProductID:      e.ProductID,
		CouponID:       e.CouponID,
		AffiliateID:    e.AffiliateID,
		PaidAt:         e.PaidAt,
		CreatedAt:      e.CreatedAt,
	}
}
