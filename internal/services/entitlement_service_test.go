package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
)

type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) GetByID(ctx context.Context, id int64) (*model.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipStore) ListGrants(ctx context.Context, membershipID int64) ([]*model.MembershipGrant, error) {
	args := m.Called(ctx, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MembershipGrant), args.Error(1)
}

func (m *MockMembershipStore) GetUserMembership(ctx context.Context, userID, membershipID int64) (*model.UserMembership, error) {
	args := m.Called(ctx, userID, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserMembership), args.Error(1)
}

func (m *MockMembershipStore) CreateUserMembership(ctx context.Context, um *model.UserMembership) (*model.UserMembership, error) {
	args := m.Called(ctx, um)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserMembership), args.Error(1)
}

func (m *MockMembershipStore) Reactivate(ctx context.Context, id int64, transactionID int64, endDate time.Time, at time.Time) error {
	args := m.Called(ctx, id, transactionID, mock.Anything, mock.Anything)
	return args.Error(0)
}

func (m *MockMembershipStore) GrantGroupMember(ctx context.Context, groupID, userID int64) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockMembershipStore) GrantCourseEnrollment(ctx context.Context, courseID, userID int64) error {
	args := m.Called(ctx, courseID, userID)
	return args.Error(0)
}

func (m *MockMembershipStore) GrantProductOwnership(ctx context.Context, productID, userID int64, transactionID *int64) error {
	args := m.Called(ctx, productID, userID, transactionID)
	return args.Error(0)
}

type MockRoleUpgrader struct {
	mock.Mock
}

func (m *MockRoleUpgrader) UpgradeRole(ctx context.Context, userID int64, roleTier int) (bool, error) {
	args := m.Called(ctx, userID, roleTier)
	return args.Bool(0), args.Error(1)
}

func activationTxn() *model.Transaction {
	return &model.Transaction{ID: 42, UserID: 7, Amount: 100_000, Reference: "INV-42"}
}

func premiumPlan() *model.Membership {
	return &model.Membership{
		ID: 3, Name: "Premium", Duration: model.DurationOneYear,
		RoleTier: model.RolePremium, IsActive: true,
	}
}

func TestEntitlementService_ActivateMembership_FirstPurchase(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	txn := activationTxn()

	memberships.On("GetByID", ctx, int64(3)).Return(premiumPlan(), nil)
	memberships.On("GetUserMembership", ctx, int64(7), int64(3)).
		Return(nil, repository.ErrUserMembershipNotFound)
	memberships.On("CreateUserMembership", ctx, mock.MatchedBy(func(um *model.UserMembership) bool {
		days := um.EndDate.Sub(um.StartDate).Hours() / 24
		return um.UserID == 7 && um.Status == model.UserMembershipActive && days > 364 && days < 366
	})).Return(&model.UserMembership{ID: 1, UserID: 7, MembershipID: 3}, nil)
	memberships.On("ListGrants", ctx, int64(3)).Return([]*model.MembershipGrant{
		{Kind: model.GrantKindGroup, TargetID: 11},
		{Kind: model.GrantKindCourse, TargetID: 22},
	}, nil)
	memberships.On("GrantGroupMember", ctx, int64(11), int64(7)).Return(nil)
	memberships.On("GrantCourseEnrollment", ctx, int64(22), int64(7)).Return(nil)
	users.On("UpgradeRole", ctx, int64(7), model.RolePremium).Return(true, nil)

	result, err := svc.ActivateMembership(ctx, txn, 3)
	require.NoError(t, err)
	assert.False(t, result.Reactivated)
	assert.True(t, result.RoleUpgraded)
	assert.Equal(t, []int64{11}, result.GrantedGroups)
	assert.Equal(t, []int64{22}, result.GrantedCourses)
	assert.Empty(t, result.Warnings)
	memberships.AssertExpectations(t)
}

func TestEntitlementService_ActivateMembership_RepurchaseReactivates(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	txn := activationTxn()

	existing := &model.UserMembership{
		ID: 5, UserID: 7, MembershipID: 3,
		Status:  model.UserMembershipExpired,
		EndDate: time.Now().AddDate(0, -1, 0),
	}

	memberships.On("GetByID", ctx, int64(3)).Return(premiumPlan(), nil)
	memberships.On("GetUserMembership", ctx, int64(7), int64(3)).Return(existing, nil)
	memberships.On("Reactivate", ctx, int64(5), int64(42), mock.Anything, mock.Anything).Return(nil)
	memberships.On("ListGrants", ctx, int64(3)).Return([]*model.MembershipGrant{}, nil)
	users.On("UpgradeRole", ctx, int64(7), model.RolePremium).Return(false, nil)

	result, err := svc.ActivateMembership(ctx, txn, 3)
	require.NoError(t, err)
	assert.True(t, result.Reactivated)
	assert.Equal(t, model.UserMembershipActive, result.UserMembership.Status)
	assert.True(t, result.UserMembership.EndDate.After(time.Now()))

	// no duplicate row for the same (user, membership) pair
	memberships.AssertNotCalled(t, "CreateUserMembership", mock.Anything, mock.Anything)
}

func TestEntitlementService_ActivateMembership_LifetimeEndDate(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	plan := premiumPlan()
	plan.Duration = model.DurationLifetime

	memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)
	memberships.On("GetUserMembership", ctx, int64(7), int64(3)).
		Return(nil, repository.ErrUserMembershipNotFound)
	memberships.On("CreateUserMembership", ctx, mock.MatchedBy(func(um *model.UserMembership) bool {
		return um.EndDate.After(time.Now().AddDate(99, 0, 0))
	})).Return(&model.UserMembership{ID: 1}, nil)
	memberships.On("ListGrants", ctx, int64(3)).Return([]*model.MembershipGrant{}, nil)
	users.On("UpgradeRole", ctx, int64(7), model.RolePremium).Return(true, nil)

	_, err := svc.ActivateMembership(ctx, activationTxn(), 3)
	require.NoError(t, err)
	memberships.AssertExpectations(t)
}

func TestEntitlementService_ActivateMembership_CascadeFailuresAreWarnings(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	txn := activationTxn()

	memberships.On("GetByID", ctx, int64(3)).Return(premiumPlan(), nil)
	memberships.On("GetUserMembership", ctx, int64(7), int64(3)).
		Return(nil, repository.ErrUserMembershipNotFound)
	memberships.On("CreateUserMembership", ctx, mock.Anything).
		Return(&model.UserMembership{ID: 1}, nil)
	memberships.On("ListGrants", ctx, int64(3)).Return([]*model.MembershipGrant{
		{Kind: model.GrantKindGroup, TargetID: 11},
		{Kind: model.GrantKindCourse, TargetID: 22},
	}, nil)
	memberships.On("GrantGroupMember", ctx, int64(11), int64(7)).
		Return(errors.New("group service down"))
	memberships.On("GrantCourseEnrollment", ctx, int64(22), int64(7)).Return(nil)
	users.On("UpgradeRole", ctx, int64(7), model.RolePremium).Return(true, nil)

	result, err := svc.ActivateMembership(ctx, txn, 3)
	require.NoError(t, err)
	// partial success: the failed grant is a warning, the rest proceed
	assert.Empty(t, result.GrantedGroups)
	assert.Equal(t, []int64{22}, result.GrantedCourses)
	require.Len(t, result.Warnings, 1)
}

func TestEntitlementService_ActivateMembership_InactivePlan(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	plan := premiumPlan()
	plan.IsActive = false
	memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)

	_, err := svc.ActivateMembership(ctx, activationTxn(), 3)
	assert.ErrorIs(t, err, ErrMembershipInactive)
}

func TestEntitlementService_ActivateProduct(t *testing.T) {
	memberships := new(MockMembershipStore)
	users := new(MockRoleUpgrader)
	ctx := context.Background()

	svc := NewEntitlementService(memberships, users)
	txn := activationTxn()

	memberships.On("GrantProductOwnership", ctx, int64(5), int64(7), &txn.ID).Return(nil)

	result, err := svc.ActivateProduct(ctx, txn, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *result.ProductID)
}
