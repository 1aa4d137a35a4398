package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserModel(&entity), nil
}

// FindManyByIDs batch-loads users keyed by id for in-memory joins.
// Missing ids are simply absent from the map.
func (r *UserRepository) FindManyByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	if len(ids) == 0 {
		return map[int64]*model.User{}, nil
	}
	var entities []*UserEntity
	err := r.Read(ctx).Where("id IN ?", ids).Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.User, len(entities))
	for _, e := range entities {
		out[e.ID] = toUserModel(e)
	}
	return out, nil
}

// UpgradeRole raises the user's role tier, never lowers it. The
// guard lives in the UPDATE itself.
func (r *UserRepository) UpgradeRole(ctx context.Context, userID int64, roleTier int) (bool, error) {
	result := r.Write(ctx).
		Model(&UserEntity{}).
		Where("id = ? AND role < ?", userID, roleTier).
		Update("role", roleTier)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
