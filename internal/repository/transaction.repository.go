package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, ref string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where("reference = ?", ref).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// MarkSuccess flips PENDING to SUCCESS with a conditional update. The
// returned bool reports whether this call performed the flip; false
// means the transaction was already terminal (idempotent replay).
func (r *TransactionRepository) MarkSuccess(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND status = ?", id, string(model.TransactionStatusPending)).
		Updates(map[string]interface{}{
			"status":  string(model.TransactionStatusSuccess),
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetAffiliate stamps the resolved attribution on the transaction row.
func (r *TransactionRepository) SetAffiliate(ctx context.Context, id, affiliateID int64) error {
	return r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("affiliate_id", affiliateID).Error
}
