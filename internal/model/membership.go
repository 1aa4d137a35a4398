package model

import "time"

type MembershipDuration string

const (
	DurationOneMonth    MembershipDuration = "ONE_MONTH"
	DurationThreeMonths MembershipDuration = "THREE_MONTHS"
	DurationSixMonths   MembershipDuration = "SIX_MONTHS"
	DurationOneYear     MembershipDuration = "ONE_YEAR"
	DurationLifetime    MembershipDuration = "LIFETIME"
)

// Days returns the entitlement length. LIFETIME is a fixed large
// offset, not a sentinel, so expiry comparisons stay uniform.
func (d MembershipDuration) Days() int {
	switch d {
	case DurationOneMonth:
		return 30
	case DurationThreeMonths:
		return 90
	case DurationSixMonths:
		return 180
	case DurationOneYear:
		return 365
	case DurationLifetime:
		return 36500
	default:
		return 30
	}
}

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "PERCENTAGE"
	CommissionTypeFlat       CommissionType = "FLAT"
)

// Membership is a plan definition. The cascade entitlement set lives
// in membership_grants rows, resolved by id at activation time.
type Membership struct {
	ID                      int64              `json:"id"`
	Name                    string             `json:"name"`
	Slug                    string             `json:"slug"`
	Price                   int64              `json:"price"`
	Duration                MembershipDuration `json:"duration"`
	AffiliateCommissionRate int64              `json:"affiliate_commission_rate"`
	CommissionType          CommissionType     `json:"commission_type"`
	RoleTier                int                `json:"role_tier"`
	IsActive                bool               `json:"is_active"`
}

func (m *Membership) CommissionRule() CommissionRule {
	return CommissionRule{Type: m.CommissionType, Rate: m.AffiliateCommissionRate}
}

type GrantKind string

const (
	GrantKindGroup   GrantKind = "GROUP"
	GrantKindCourse  GrantKind = "COURSE"
	GrantKindProduct GrantKind = "PRODUCT"
)

// MembershipGrant links a plan to one entitlement it cascades on
// activation.
type MembershipGrant struct {
	ID           int64     `json:"id"`
	MembershipID int64     `json:"membership_id"`
	Kind         GrantKind `json:"kind"`
	TargetID     int64     `json:"target_id"`
}

type UserMembershipStatus string

const (
	UserMembershipActive  UserMembershipStatus = "ACTIVE"
	UserMembershipExpired UserMembershipStatus = "EXPIRED"
	UserMembershipPending UserMembershipStatus = "PENDING"
)

// UserMembership links a user to a plan. One row per (user,
// membership) pair; re-purchase reactivates.
type UserMembership struct {
	ID            int64                `json:"id"`
	UserID        int64                `json:"user_id"`
	MembershipID  int64                `json:"membership_id"`
	TransactionID *int64               `json:"transaction_id,omitempty"`
	Status        UserMembershipStatus `json:"status"`
	IsActive      bool                 `json:"is_active"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       time.Time            `json:"end_date"`
	Price         int64                `json:"price"`
	ActivatedAt   *time.Time           `json:"activated_at,omitempty"`
}

// ActivationResult reports what the entitlement cascade granted.
// Warnings carry cascade steps that failed without aborting the rest.
type ActivationResult struct {
	UserMembership  *UserMembership `json:"user_membership,omitempty"`
	ProductID       *int64          `json:"product_id,omitempty"`
	Reactivated     bool            `json:"reactivated"`
	GrantedGroups   []int64         `json:"granted_groups,omitempty"`
	GrantedCourses  []int64         `json:"granted_courses,omitempty"`
	GrantedProducts []int64         `json:"granted_products,omitempty"`
	RoleUpgraded    bool            `json:"role_upgraded"`
	Warnings        []Warning       `json:"warnings,omitempty"`
}

func (r *ActivationResult) Warn(step, reason string) {
	r.Warnings = append(r.Warnings, Warning{Step: step, Reason: reason})
}
