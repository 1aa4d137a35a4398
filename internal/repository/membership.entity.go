package repository

import (
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type MembershipEntity struct {
	ID                      int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name                    string `gorm:"column:name;not null"`
	Slug                    string `gorm:"column:slug;uniqueIndex;not null"`
	Price                   int64  `gorm:"column:price;not null"`
	Duration                string `gorm:"column:duration;not null"`
	AffiliateCommissionRate int64  `gorm:"column:affiliate_commission_rate;not null;default:0"`
	CommissionType          string `gorm:"column:commission_type;not null;default:'PERCENTAGE'"`
	RoleTier                int    `gorm:"column:role_tier;not null;default:1"`
	IsActive                bool   `gorm:"column:is_active;not null;default:true"`
}

func (MembershipEntity) TableName() string {
	return "memberships"
}

type MembershipGrantEntity struct {
	ID           int64  `gorm:"primaryKey;autoIncrement;column:id"`
	MembershipID int64  `gorm:"column:membership_id;not null;index"`
	Kind         string `gorm:"column:kind;not null"`
	TargetID     int64  `gorm:"column:target_id;not null"`
}

func (MembershipGrantEntity) TableName() string {
	return "membership_grants"
}

type UserMembershipEntity struct {
	ID            int64      `gorm:"primaryKey;autoIncrement;column:id"`
	UserID        int64      `gorm:"column:user_id;not null;uniqueIndex:idx_user_membership"`
	MembershipID  int64      `gorm:"column:membership_id;not null;uniqueIndex:idx_user_membership"`
	TransactionID *int64     `gorm:"column:transaction_id"`
	Status        string     `gorm:"column:status;not null"`
	IsActive      bool       `gorm:"column:is_active;not null;default:false"`
	StartDate     time.Time  `gorm:"column:start_date;not null"`
	EndDate       time.Time  `gorm:"column:end_date;not null"`
	Price         int64      `gorm:"column:price;not null;default:0"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
}

func (UserMembershipEntity) TableName() string {
	return "user_memberships"
}

// Cascade grant rows. Create-ignore-if-exists semantics via the
// unique pair indexes.

type GroupMemberEntity struct {
	ID       int64     `gorm:"primaryKey;autoIncrement;column:id"`
	GroupID  int64     `gorm:"column:group_id;not null;uniqueIndex:idx_group_member"`
	UserID   int64     `gorm:"column:user_id;not null;uniqueIndex:idx_group_member"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime"`
}

func (GroupMemberEntity) TableName() string {
	return "group_members"
}

type CourseEnrollmentEntity struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	CourseID   int64     `gorm:"column:course_id;not null;uniqueIndex:idx_course_enrollment"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_course_enrollment"`
	EnrolledAt time.Time `gorm:"column:enrolled_at;autoCreateTime"`
}

func (CourseEnrollmentEntity) TableName() string {
	return "course_enrollments"
}

type ProductOwnershipEntity struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ProductID     int64     `gorm:"column:product_id;not null;uniqueIndex:idx_product_ownership"`
	UserID        int64     `gorm:"column:user_id;not null;uniqueIndex:idx_product_ownership"`
	TransactionID *int64    `gorm:"column:transaction_id"`
	PurchaseDate  time.Time `gorm:"column:purchase_date;autoCreateTime"`
}

func (ProductOwnershipEntity) TableName() string {
	return "product_ownerships"
}

func toMembershipModel(e *MembershipEntity) *model.Membership {
	if e == nil {
		return nil
	}
	return &model.Membership{
		ID:                      e.ID,
		Name:                    e.Name,
		Slug:                    e.Slug,
		Price:                   e.Price,
		Duration:                model.MembershipDuration(e.Duration),
		AffiliateCommissionRate: e.AffiliateCommissionRate,
		CommissionType:          model.CommissionType(e.CommissionType),
		RoleTier:                e.RoleTier,
		IsActive:                e.IsActive,
	}
}

func toMembershipGrantModel(e *MembershipGrantEntity) *model.MembershipGrant {
	if e == nil {
		return nil
	}
	return &model.MembershipGrant{
		ID:           e.ID,
		MembershipID: e.MembershipID,
		Kind:         model.GrantKind(e.Kind),
		TargetID:     e.TargetID,
	}
}

func toUserMembershipEntity(m *model.UserMembership) *UserMembershipEntity {
	if m == nil {
		return nil
	}
	return &UserMembershipEntity{
		ID:            m.ID,
		UserID:        m.UserID,
		MembershipID:  m.MembershipID,
		TransactionID: m.TransactionID,
		Status:        string(m.Status),
		IsActive:      m.IsActive,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		Price:         m.Price,
		ActivatedAt:   m.ActivatedAt,
	}
}

func toUserMembershipModel(e *UserMembershipEntity) *model.UserMembership {
	if e == nil {
		return nil
	}
	return &model.UserMembership{
		ID:            e.ID,
		UserID:        e.UserID,
		MembershipID:  e.MembershipID,
		TransactionID: e.TransactionID,
		Status:        model.UserMembershipStatus(e.Status),
		IsActive:      e.IsActive,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		Price:         e.Price,
		ActivatedAt:   e.ActivatedAt,
	}
}
