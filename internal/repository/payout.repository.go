package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

var ErrPayoutNotFound = errors.New("payout not found")

// PayoutRepository implements the payout state machine with
// conditional from-state updates. RowsAffected == 0 on a transition
// means the payout was not in the expected state: a replayed webhook
// or an illegal transition, never applied twice.
type PayoutRepository struct {
	*pg.DB
}

func NewPayoutRepository(db *pg.DB) *PayoutRepository {
	return &PayoutRepository{db}
}

func (r *PayoutRepository) Create(ctx context.Context, p *model.Payout) (*model.Payout, error) {
	entity := toPayoutEntity(p)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPayoutModel(entity), nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*model.Payout, error) {
	var entity PayoutEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return toPayoutModel(&entity), nil
}

func (r *PayoutRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Payout, error) {
	var entity PayoutEntity
	err := r.Read(ctx).Where("external_id = ?", externalID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return toPayoutModel(&entity), nil
}

// MarkProcessing moves PENDING to PROCESSING, storing the gateway's
// disbursement id.
func (r *PayoutRepository) MarkProcessing(ctx context.Context, id int64, disbursementID string, at time.Time) (bool, error) {
	result := r.Write(ctx).
		Model(&PayoutEntity{}).
		Where("id = ? AND status = ?", id, string(model.PayoutStatusPending)).
		Updates(map[string]interface{}{
			"status":          string(model.PayoutStatusProcessing),
			"disbursement_id": disbursementID,
			"processed_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted moves PROCESSING (or PENDING, when the gateway beat
// the approval response) to COMPLETED.
func (r *PayoutRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.Write(ctx).
		Model(&PayoutEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.PayoutStatusPending),
			string(model.PayoutStatusProcessing),
		}).
		Updates(map[string]interface{}{
			"status":       string(model.PayoutStatusCompleted),
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelled moves PENDING/PROCESSING to CANCELLED. The refund is
// applied only when this flip succeeds, which makes it exactly-once.
func (r *PayoutRepository) MarkCancelled(ctx context.Context, id int64, reason string) (bool, error) {
	result := r.Write(ctx).
		Model(&PayoutEntity{}).
		Where("id = ? AND status IN ?", id, []string{
			string(model.PayoutStatusPending),
			string(model.PayoutStatusProcessing),
		}).
		Updates(map[string]interface{}{
			"status":         string(model.PayoutStatusCancelled),
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
