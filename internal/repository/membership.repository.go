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
	ErrMembershipNotFound     = errors.New("membership not found")
	ErrUserMembershipNotFound = errors.New("user membership not found")
)

type MembershipRepository struct {
	*pg.DB
}

func NewMembershipRepository(db *pg.DB) *MembershipRepository {
	return &MembershipRepository{db}
}

func (r *MembershipRepository) GetByID(ctx context.Context, id int64) (*model.Membership, error) {
	var entity MembershipEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return toMembershipModel(&entity), nil
}

// ListGrants returns the plan's cascade entitlement set: flat rows,
// joined in memory by the activator.
func (r *MembershipRepository) ListGrants(ctx context.Context, membershipID int64) ([]*model.MembershipGrant, error) {
	var entities []*MembershipGrantEntity
	err := r.Read(ctx).
		Where("membership_id = ?", membershipID).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	grants := make([]*model.MembershipGrant, len(entities))
	for i, e := range entities {
		grants[i] = toMembershipGrantModel(e)
	}
	return grants, nil
}

func (r *MembershipRepository) GetUserMembership(ctx context.Context, userID, membershipID int64) (*model.UserMembership, error) {
	var entity UserMembershipEntity
	err := r.Read(ctx).
		Where("user_id = ? AND membership_id = ?", userID, membershipID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserMembershipNotFound
		}
		return nil, err
	}
	return toUserMembershipModel(&entity), nil
}

func (r *MembershipRepository) CreateUserMembership(ctx context.Context, um *model.UserMembership) (*model.UserMembership, error) {
	entity := toUserMembershipEntity(um)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toUserMembershipModel(entity), nil
}

// Reactivate revives an existing row for a re-purchase. end_date only
// ever moves forward: a shorter new period never truncates a longer
// remaining one.
func (r *MembershipRepository) Reactivate(ctx context.Context, id int64, transactionID int64, endDate time.Time, at time.Time) error {
	result := r.Write(ctx).
		Model(&UserMembershipEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         string(model.UserMembershipActive),
			"is_active":      true,
			"transaction_id": transactionID,
			"activated_at":   at,
			"end_date":       gorm.Expr("CASE WHEN end_date > ? THEN end_date ELSE ? END", endDate, endDate),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserMembershipNotFound
	}
	return nil
}

// Cascade grants: create, ignore if the row already exists. A
// pre-existing grant is not an error.

func (r *MembershipRepository) GrantGroupMember(ctx context.Context, groupID, userID int64) error {
	entity := GroupMemberEntity{GroupID: groupID, UserID: userID}
	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&entity).Error
}

func (r *MembershipRepository) GrantCourseEnrollment(ctx context.Context, courseID, userID int64) error {
	entity := CourseEnrollmentEntity{CourseID: courseID, UserID: userID}
	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&entity).Error
}

func (r *MembershipRepository) GrantProductOwnership(ctx context.Context, productID, userID int64, transactionID *int64) error {
	entity := ProductOwnershipEntity{ProductID: productID, UserID: userID, TransactionID: transactionID}
	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&entity).Error
}

func (r *MembershipRepository) CountUserMemberships(ctx context.Context, userID, membershipID int64) (int64, error) {
	var count int64
	err := r.Read(ctx).
		Model(&UserMembershipEntity{}).
		Where("user_id = ? AND membership_id = ?", userID, membershipID).
		Count(&count).Error
	return count, err
}
