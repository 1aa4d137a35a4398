package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

var (
	ErrAffiliateNotFound  = errors.New("affiliate not found")
	ErrConversionNotFound = errors.New("conversion not found")
)

type AffiliateRepository struct {
	*pg.DB
}

func NewAffiliateRepository(db *pg.DB) *AffiliateRepository {
	return &AffiliateRepository{db}
}

func (r *AffiliateRepository) FindActiveByCode(ctx context.Context, code string) (*model.AffiliateProfile, error) {
	var entity AffiliateProfileEntity
	err := r.Read(ctx).Where("code = ? AND is_active = ?", code, true).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	return toAffiliateProfileModel(&entity), nil
}

func (r *AffiliateRepository) FindByID(ctx context.Context, id int64) (*model.AffiliateProfile, error) {
	var entity AffiliateProfileEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	return toAffiliateProfileModel(&entity), nil
}

func (r *AffiliateRepository) FindByUserID(ctx context.Context, userID int64) (*model.AffiliateProfile, error) {
	var entity AffiliateProfileEntity
	err := r.Read(ctx).Where("user_id = ?", userID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	return toAffiliateProfileModel(&entity), nil
}

// CreateConversion persists the conversion for a transaction. The
// unique transaction_id index makes the insert a no-op on replay; the
// returned bool is false when an existing conversion was returned
// instead.
func (r *AffiliateRepository) CreateConversion(ctx context.Context, conv *model.AffiliateConversion) (*model.AffiliateConversion, bool, error) {
	entity := toAffiliateConversionEntity(conv)
	result := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(entity)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.GetConversionByTransactionID(ctx, conv.TransactionID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return toAffiliateConversionModel(entity), true, nil
}

func (r *AffiliateRepository) GetConversionByTransactionID(ctx context.Context, transactionID int64) (*model.AffiliateConversion, error) {
	var entity AffiliateConversionEntity
	err := r.Read(ctx).Where("transaction_id = ?", transactionID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionNotFound
		}
		return nil, err
	}
	return toAffiliateConversionModel(&entity), nil
}

// IncrementAggregates bumps the profile's running totals atomically.
func (r *AffiliateRepository) IncrementAggregates(ctx context.Context, affiliateID, earnings, conversions int64) error {
	result := r.Write(ctx).
		Model(&AffiliateProfileEntity{}).
		Where("id = ?", affiliateID).
		Updates(map[string]interface{}{
			"total_earnings":    gorm.Expr("total_earnings + ?", earnings),
			"total_conversions": gorm.Expr("total_conversions + ?", conversions),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

func (r *AffiliateRepository) IncrementClicks(ctx context.Context, affiliateID int64) error {
	result := r.Write(ctx).
		Model(&AffiliateProfileEntity{}).
		Where("id = ?", affiliateID).
		Update("total_clicks", gorm.Expr("total_clicks + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

// ListUnpaidOldest returns unpaid conversions oldest first, for the
// FIFO paid-out marking pass after a completed disbursement.
func (r *AffiliateRepository) ListUnpaidOldest(ctx context.Context, affiliateID int64, limit int) ([]*model.AffiliateConversion, error) {
	if limit <= 0 {
		limit = 100
	}
	var entities []*AffiliateConversionEntity
	err := r.Read(ctx).
		Where("affiliate_id = ? AND paid_out = ?", affiliateID, false).
		Order("id ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toAffiliateConversionModels(entities), nil
}

// MarkConversionsPaid flips the paid_out flag on unpaid rows only, so
// a duplicate reconciliation pass cannot re-mark.
func (r *AffiliateRepository) MarkConversionsPaid(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.Write(ctx).
		Model(&AffiliateConversionEntity{}).
		Where("id IN ? AND paid_out = ?", ids, false).
		Updates(map[string]interface{}{
			"paid_out":    true,
			"paid_out_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
