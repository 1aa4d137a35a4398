package repository

import (
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type AffiliateProfileEntity struct {
	ID               int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID           int64     `gorm:"column:user_id;uniqueIndex;not null"`
	Code             string    `gorm:"column:code;uniqueIndex;not null"`
	Tier             int       `gorm:"column:tier;not null;default:1"`
	CommissionRate   int64     `gorm:"column:commission_rate;not null;default:0"`
	TotalEarnings    int64     `gorm:"column:total_earnings;not null;default:0"`
	TotalConversions int64     `gorm:"column:total_conversions;not null;default:0"`
	TotalClicks      int64     `gorm:"column:total_clicks;not null;default:0"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AffiliateProfileEntity) TableName() string {
	return "affiliate_profiles"
}

type AffiliateConversionEntity struct {
	ID               int64      `gorm:"primaryKey;autoIncrement;column:id"`
	AffiliateID      int64      `gorm:"column:affiliate_id;not null;index"`
	TransactionID    int64      `gorm:"column:transaction_id;uniqueIndex;not null"`
	CommissionAmount int64      `gorm:"column:commission_amount;not null"`
	CommissionRate   int64      `gorm:"column:commission_rate;not null"`
	CommissionType   string     `gorm:"column:commission_type;not null"`
	PaidOut          bool       `gorm:"column:paid_out;not null;default:false;index"`
	PaidOutAt        *time.Time `gorm:"column:paid_out_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (AffiliateConversionEntity) TableName() string {
	return "affiliate_conversions"
}

func toAffiliateProfileModel(e *AffiliateProfileEntity) *model.AffiliateProfile {
	if e == nil {
		return nil
	}
	return &model.AffiliateProfile{
		ID:               e.ID,
		UserID:           e.UserID,
		Code:             e.Code,
		Tier:             e.Tier,
		CommissionRate:   e.CommissionRate,
		TotalEarnings:    e.TotalEarnings,
		TotalConversions: e.TotalConversions,
		TotalClicks:      e.TotalClicks,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt,
	}
}

func toAffiliateConversionEntity(m *model.AffiliateConversion) *AffiliateConversionEntity {
	if m == nil {
		return nil
	}
	return &AffiliateConversionEntity{
		ID:               m.ID,
		AffiliateID:      m.AffiliateID,
		TransactionID:    m.TransactionID,
		CommissionAmount: m.CommissionAmount,
		CommissionRate:   m.CommissionRate,
		CommissionType:   string(m.CommissionType),
		PaidOut:          m.PaidOut,
		PaidOutAt:        m.PaidOutAt,
		CreatedAt:        m.CreatedAt,
	}
}

func toAffiliateConversionModel(e *AffiliateConversionEntity) *model.AffiliateConversion {
	if e == nil {
		return nil
	}
	return &model.AffiliateConversion{
		ID:               e.ID,
		AffiliateID:      e.AffiliateID,
		TransactionID:    e.TransactionID,
		CommissionAmount: e.CommissionAmount,
		CommissionRate:   e.CommissionRate,
		CommissionType:   model.CommissionType(e.CommissionType),
		PaidOut:          e.PaidOut,
		PaidOutAt:        e.PaidOutAt,
		CreatedAt:        e.CreatedAt,
	}
}

func toAffiliateConversionModels(entities []*AffiliateConversionEntity) []*model.AffiliateConversion {
	if entities == nil {
		return nil
	}
	models := make([]*model.AffiliateConversion, len(entities))
	for i, e := range entities {
		models[i] = toAffiliateConversionModel(e)
	}
	return models
}
