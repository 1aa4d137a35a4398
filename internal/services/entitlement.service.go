package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/logger"
)

var ErrMembershipInactive = errors.New("membership plan is not active")

type MembershipStore interface {
	GetByID(ctx context.Context, id int64) (*model.Membership, error)
	ListGrants(ctx context.Context, membershipID int64) ([]*model.MembershipGrant, error)
	GetUserMembership(ctx context.Context, userID, membershipID int64) (*model.UserMembership, error)
	CreateUserMembership(ctx context.Context, um *model.UserMembership) (*model.UserMembership, error)
	Reactivate(ctx context.Context, id int64, transactionID int64, endDate time.Time, at time.Time) error
	GrantGroupMember(ctx context.Context, groupID, userID int64) error
	GrantCourseEnrollment(ctx context.Context, courseID, userID int64) error
	GrantProductOwnership(ctx context.Context, productID, userID int64, transactionID *int64) error
}

type RoleUpgrader interface {
	UpgradeRole(ctx context.Context, userID int64, roleTier int) (bool, error)
}

// EntitlementService activates what the buyer paid for: the
// user-membership row, the plan's cascade grants, and the role
// upgrade. Cascade steps that fail are recorded as warnings and do
// not abort the rest; the settlement still completes.
type EntitlementService struct {
	memberships MembershipStore
	users       RoleUpgrader
}

func NewEntitlementService(memberships MembershipStore, users RoleUpgrader) *EntitlementService {
	return &EntitlementService{memberships: memberships, users: users}
}

// ActivateMembership creates or reactivates the (user, membership)
// row and runs the grant cascade. A re-purchase of the same plan
// never creates a second row.
func (s *EntitlementService) ActivateMembership(ctx context.Context, txn *model.Transaction, membershipID int64) (*model.ActivationResult, error) {
	plan, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("load membership %d: %w", membershipID, err)
	}
	if !plan.IsActive {
		return nil, ErrMembershipInactive
	}

	now := time.Now()
	endDate := now.AddDate(0, 0, plan.Duration.Days())
	result := &model.ActivationResult{}

	existing, err := s.memberships.GetUserMembership(ctx, txn.UserID, membershipID)
	switch {
	case err == nil:
		if err := s.memberships.Reactivate(ctx, existing.ID, txn.ID, endDate, now); err != nil {
			return nil, fmt.Errorf("reactivate user membership %d: %w", existing.ID, err)
		}
		existing.Status = model.UserMembershipActive
		existing.IsActive = true
		if endDate.After(existing.EndDate) {
			existing.EndDate = endDate
		}
		result.UserMembership = existing
		result.Reactivated = true
	case errors.Is(err, repository.ErrUserMembershipNotFound):
		created, err := s.memberships.CreateUserMembership(ctx, &model.UserMembership{
			UserID:        txn.UserID,
			MembershipID:  membershipID,
			TransactionID: &txn.ID,
			Status:        model.UserMembershipActive,
			IsActive:      true,
			StartDate:     now,
			EndDate:       endDate,
			Price:         txn.Amount,
			ActivatedAt:   &now,
		})
		if err != nil {
			return nil, fmt.Errorf("create user membership: %w", err)
		}
		result.UserMembership = created
	default:
		return nil, fmt.Errorf("lookup user membership: %w", err)
	}

	s.cascade(ctx, txn, result, membershipID)

	upgraded, err := s.users.UpgradeRole(ctx, txn.UserID, plan.RoleTier)
	if err != nil {
		result.Warn("role_upgrade", err.Error())
	} else {
		result.RoleUpgraded = upgraded
	}

	logger.Info("membership activated",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"membership_id", membershipID,
		"reactivated", result.Reactivated,
		"warnings", len(result.Warnings))
	return result, nil
}

// ActivateProduct records ownership of a standalone product purchase.
func (s *EntitlementService) ActivateProduct(ctx context.Context, txn *model.Transaction, productID int64) (*model.ActivationResult, error) {
	if err := s.memberships.GrantProductOwnership(ctx, productID, txn.UserID, &txn.ID); err != nil {
		return nil, fmt.Errorf("grant product ownership: %w", err)
	}
	return &model.ActivationResult{ProductID: &productID}, nil
}

func (s *EntitlementService) cascade(ctx context.Context, txn *model.Transaction, result *model.ActivationResult, membershipID int64) {
	grants, err := s.memberships.ListGrants(ctx, membershipID)
	if err != nil {
		result.Warn("grant_cascade", err.Error())
		return
	}
	for _, grant := range grants {
		var err error
		switch grant.Kind {
		case model.GrantKindGroup:
			if err = s.memberships.GrantGroupMember(ctx, grant.TargetID, txn.UserID); err == nil {
				result.GrantedGroups = append(result.GrantedGroups, grant.TargetID)
			}
		case model.GrantKindCourse:
			if err = s.memberships.GrantCourseEnrollment(ctx, grant.TargetID, txn.UserID); err == nil {
				result.GrantedCourses = append(result.GrantedCourses, grant.TargetID)
			}
		case model.GrantKindProduct:
			if err = s.memberships.GrantProductOwnership(ctx, grant.TargetID, txn.UserID, &txn.ID); err == nil {
				result.GrantedProducts = append(result.GrantedProducts, grant.TargetID)
			}
		default:
			result.Warn("grant_cascade", fmt.Sprintf("unknown grant kind %q", grant.Kind))
			continue
		}
		if err != nil {
			result.Warn(fmt.Sprintf("grant_%s_%d", grant.Kind, grant.TargetID), err.Error())
			logger.Warn("entitlement grant failed",
				"transaction_id", txn.ID,
				"kind", grant.Kind,
				"target_id", grant.TargetID,
				"error", err)
		}
	}
}
