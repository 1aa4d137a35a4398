package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

type MockSettlementTransactionRepository struct {
	mock.Mock
}

func (m *MockSettlementTransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockSettlementTransactionRepository) GetByReference(ctx context.Context, ref string) (*model.Transaction, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockSettlementTransactionRepository) MarkSuccess(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, id, mock.Anything)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementTransactionRepository) SetAffiliate(ctx context.Context, id, affiliateID int64) error {
	args := m.Called(ctx, id, affiliateID)
	return args.Error(0)
}

type MockMembershipRuleSource struct {
	mock.Mock
}

func (m *MockMembershipRuleSource) GetByID(ctx context.Context, id int64) (*model.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

type MockAffiliateResolver struct {
	mock.Mock
}

func (m *MockAffiliateResolver) Resolve(ctx context.Context, code string) (*model.AffiliateIdentity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AffiliateIdentity), args.Error(1)
}

type MockAffiliateRuleSource struct {
	mock.Mock
}

func (m *MockAffiliateRuleSource) FindByID(ctx context.Context, id int64) (*model.AffiliateProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AffiliateProfile), args.Error(1)
}

type MockCommissionDistributor struct {
	mock.Mock
}

func (m *MockCommissionDistributor) Distribute(ctx context.Context, txn *model.Transaction, affiliate *model.AffiliateIdentity, rule model.CommissionRule) (*model.DistributionResult, error) {
	args := m.Called(ctx, txn, affiliate, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DistributionResult), args.Error(1)
}

type MockEntitlementActivator struct {
	mock.Mock
}

func (m *MockEntitlementActivator) ActivateMembership(ctx context.Context, txn *model.Transaction, membershipID int64) (*model.ActivationResult, error) {
	args := m.Called(ctx, txn, membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActivationResult), args.Error(1)
}

func (m *MockEntitlementActivator) ActivateProduct(ctx context.Context, txn *model.Transaction, productID int64) (*model.ActivationResult, error) {
	args := m.Called(ctx, txn, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActivationResult), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, v any) (string, error) {
	args := m.Called(ctx, v)
	return args.String(0), args.Error(1)
}

type settlementMocks struct {
	transactions *MockSettlementTransactionRepository
	memberships  *MockMembershipRuleSource
	affiliates   *MockAffiliateResolver
	profiles     *MockAffiliateRuleSource
	commissions  *MockCommissionDistributor
	entitlements *MockEntitlementActivator
	events       *MockEventPublisher
}

func newSettlementService() (*SettlementService, *settlementMocks) {
	m := &settlementMocks{
		transactions: new(MockSettlementTransactionRepository),
		memberships:  new(MockMembershipRuleSource),
		affiliates:   new(MockAffiliateResolver),
		profiles:     new(MockAffiliateRuleSource),
		commissions:  new(MockCommissionDistributor),
		entitlements: new(MockEntitlementActivator),
		events:       new(MockEventPublisher),
	}
	svc := NewSettlementService(
		m.transactions, m.memberships, m.affiliates, m.profiles,
		m.commissions, m.entitlements, m.events, nil)
	return svc, m
}

func pendingMembershipTxn() *model.Transaction {
	mid := int64(3)
	return &model.Transaction{
		ID:           42,
		UserID:       7,
		Amount:       100_000,
		Type:         model.TransactionTypeMembership,
		Status:       model.TransactionStatusPending,
		Reference:    "INV-42",
		MembershipID: &mid,
	}
}

func TestSettlementService_Settle_MembershipWithAffiliate(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	txn := pendingMembershipTxn()
	affiliate := &model.AffiliateIdentity{AffiliateID: 10, UserID: 100, Code: "ABC"}
	plan := &model.Membership{ID: 3, Duration: model.DurationOneYear, AffiliateCommissionRate: 30,
		CommissionType: model.CommissionTypePercentage, RoleTier: model.RolePremium, IsActive: true}

	m.transactions.On("GetByID", ctx, int64(42)).Return(txn, nil)
	m.affiliates.On("Resolve", ctx, "ABC").Return(affiliate, nil)
	m.transactions.On("SetAffiliate", ctx, int64(42), int64(10)).Return(nil)
	m.transactions.On("MarkSuccess", ctx, int64(42), mock.Anything).Return(true, nil)
	m.memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)
	m.commissions.On("Distribute", ctx, txn, affiliate, plan.CommissionRule()).
		Return(&model.DistributionResult{}, nil)
	m.entitlements.On("ActivateMembership", ctx, txn, int64(3)).
		Return(&model.ActivationResult{RoleUpgraded: true}, nil)
	m.events.On("PublishJSON", ctx, mock.Anything).Return("1-0", nil)

	result, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.MembershipCheckout{MembershipID: 3, AffiliateCode: "ABC"},
	})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, model.TransactionStatusSuccess, result.Transaction.Status)
	require.NotNil(t, result.Activation)
	assert.True(t, result.Activation.RoleUpgraded)

	m.transactions.AssertExpectations(t)
	m.events.AssertExpectations(t)
}

func TestSettlementService_Settle_ReplayIsIdempotent(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	now := time.Now()
	settled := pendingMembershipTxn()
	settled.Status = model.TransactionStatusSuccess
	settled.PaidAt = &now

	plan := &model.Membership{ID: 3, Duration: model.DurationOneYear, IsActive: true,
		CommissionType: model.CommissionTypePercentage, AffiliateCommissionRate: 30}

	m.transactions.On("GetByID", ctx, int64(42)).Return(settled, nil)
	m.affiliates.On("Resolve", ctx, "").Return(nil, nil)
	m.transactions.On("MarkSuccess", ctx, int64(42), mock.Anything).Return(false, nil)
	m.memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)
	m.commissions.On("Distribute", ctx, settled, (*model.AffiliateIdentity)(nil), plan.CommissionRule()).
		Return(&model.DistributionResult{Replayed: true}, nil)
	// activation re-runs on replay; the grants are idempotent
	m.entitlements.On("ActivateMembership", ctx, settled, int64(3)).
		Return(&model.ActivationResult{Reactivated: true}, nil)

	result, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.MembershipCheckout{MembershipID: 3},
	})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.True(t, result.Distribution.Replayed)

	// no second payment.confirmed event
	m.events.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	m.transactions.AssertNotCalled(t, "SetAffiliate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_CancelledTransactionRejected(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	txn := pendingMembershipTxn()
	txn.Status = model.TransactionStatusCancelled
	m.transactions.On("GetByID", ctx, int64(42)).Return(txn, nil)

	_, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.MembershipCheckout{MembershipID: 3},
	})
	assert.ErrorIs(t, err, ErrTransactionCancelled)
	m.transactions.AssertNotCalled(t, "MarkSuccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_PayloadTypeMismatch(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	txn := pendingMembershipTxn()
	m.transactions.On("GetByID", ctx, int64(42)).Return(txn, nil)

	_, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.ProductCheckout{ProductID: 5},
	})
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestSettlementService_Settle_ActivationFailureIsWarning(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	txn := pendingMembershipTxn()
	plan := &model.Membership{ID: 3, Duration: model.DurationOneYear, IsActive: true,
		CommissionType: model.CommissionTypePercentage, AffiliateCommissionRate: 30}

	m.transactions.On("GetByID", ctx, int64(42)).Return(txn, nil)
	m.affiliates.On("Resolve", ctx, "").Return(nil, nil)
	m.transactions.On("MarkSuccess", ctx, int64(42), mock.Anything).Return(true, nil)
	m.memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)
	m.commissions.On("Distribute", ctx, txn, (*model.AffiliateIdentity)(nil), plan.CommissionRule()).
		Return(&model.DistributionResult{}, nil)
	m.entitlements.On("ActivateMembership", ctx, txn, int64(3)).
		Return(nil, ErrMembershipInactive)
	m.events.On("PublishJSON", ctx, mock.Anything).Return("1-0", nil)

	result, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.MembershipCheckout{MembershipID: 3},
	})
	require.NoError(t, err)
	assert.Nil(t, result.Activation)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "entitlement", result.Warnings[0].Step)
}

func TestSettlementService_Settle_CommissionFailureIsWarning(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	txn := pendingMembershipTxn()
	plan := &model.Membership{ID: 3, Duration: model.DurationOneYear, IsActive: true,
		CommissionType: model.CommissionTypePercentage, AffiliateCommissionRate: 30}

	m.transactions.On("GetByID", ctx, int64(42)).Return(txn, nil)
	m.affiliates.On("Resolve", ctx, "").Return(nil, nil)
	m.transactions.On("MarkSuccess", ctx, int64(42), mock.Anything).Return(true, nil)
	m.memberships.On("GetByID", ctx, int64(3)).Return(plan, nil)
	m.commissions.On("Distribute", ctx, txn, (*model.AffiliateIdentity)(nil), plan.CommissionRule()).
		Return(nil, ErrCommissionConfig)
	m.entitlements.On("ActivateMembership", ctx, txn, int64(3)).
		Return(&model.ActivationResult{RoleUpgraded: true}, nil)
	m.events.On("PublishJSON", ctx, mock.Anything).Return("1-0", nil)

	// the payment stays recorded: commission trouble must not undo or
	// block the settlement, entitlements, or the confirmation event
	result, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 42,
		Payload:       model.MembershipCheckout{MembershipID: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Distribution)
	require.NotNil(t, result.Activation)
	assert.True(t, result.Activation.RoleUpgraded)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "commission", result.Warnings[0].Step)

	m.entitlements.AssertExpectations(t)
	m.events.AssertExpectations(t)
}

func TestSettlementService_Settle_ProductFallbackRate(t *testing.T) {
	svc, m := newSettlementService()
	ctx := context.Background()

	pid := int64(5)
	txn := &model.Transaction{
		ID: 50, UserID: 7, Amount: 80_000,
		Type: model.TransactionTypeProduct, Status: model.TransactionStatusPending,
		Reference: "INV-50", ProductID: &pid,
	}
	affiliate := &model.AffiliateIdentity{AffiliateID: 10, UserID: 100, Code: "ABC"}
	profile := &model.AffiliateProfile{ID: 10, UserID: 100, Code: "ABC", CommissionRate: 20}

	m.transactions.On("GetByID", ctx, int64(50)).Return(txn, nil)
	m.affiliates.On("Resolve", ctx, "ABC").Return(affiliate, nil)
	m.transactions.On("SetAffiliate", ctx, int64(50), int64(10)).Return(nil)
	m.transactions.On("MarkSuccess", ctx, int64(50), mock.Anything).Return(true, nil)
	m.profiles.On("FindByID", ctx, int64(10)).Return(profile, nil)
	m.commissions.On("Distribute", ctx, txn, affiliate,
		model.CommissionRule{Type: model.CommissionTypePercentage, Rate: 20}).
		Return(&model.DistributionResult{}, nil)
	m.entitlements.On("ActivateProduct", ctx, txn, int64(5)).
		Return(&model.ActivationResult{ProductID: &pid}, nil)
	m.events.On("PublishJSON", ctx, mock.Anything).Return("1-0", nil)

	result, err := svc.Settle(ctx, model.SettlementRequest{
		TransactionID: 50,
		Payload:       model.ProductCheckout{ProductID: 5, AffiliateCode: "ABC"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Activation)
	assert.Equal(t, pid, *result.Activation.ProductID)
	m.commissions.AssertExpectations(t)
}
