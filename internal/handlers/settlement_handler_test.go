package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/repository"
	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/services"
)

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Settle(ctx context.Context, req model.SettlementRequest) (*model.SettlementResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementResult), args.Error(1)
}

func settlementBody(t *testing.T, req settlementRequest) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	assert.NoError(t, err)
	return b
}

func TestSettlementHandler_CreateSettlement(t *testing.T) {
	t.Run("settles a pending transaction", func(t *testing.T) {
		svc := new(MockSettlementService)
		handler := NewSettlementHandler(svc, nil)

		svc.On("Settle", mock.Anything, mock.Anything).Return(&model.SettlementResult{
			Transaction: &model.Transaction{ID: 42, Status: model.TransactionStatusSuccess},
		}, nil)

		ctx := setupTestContext("POST", "/settlements", settlementBody(t, settlementRequest{
			TransactionID: 42, Type: string(model.TransactionTypeMembership), MembershipID: 3,
		}))
		handler.CreateSettlement(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing transaction identity is a caller error", func(t *testing.T) {
		svc := new(MockSettlementService)
		handler := NewSettlementHandler(svc, nil)

		ctx := setupTestContext("POST", "/settlements", settlementBody(t, settlementRequest{
			Type: string(model.TransactionTypeMembership), MembershipID: 3,
		}))
		handler.CreateSettlement(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})

	t.Run("missing membership_id is a caller error", func(t *testing.T) {
		svc := new(MockSettlementService)
		handler := NewSettlementHandler(svc, nil)

		ctx := setupTestContext("POST", "/settlements", settlementBody(t, settlementRequest{
			TransactionID: 42, Type: string(model.TransactionTypeMembership),
		}))
		handler.CreateSettlement(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})

	t.Run("unknown transaction maps to 404", func(t *testing.T) {
		svc := new(MockSettlementService)
		handler := NewSettlementHandler(svc, nil)

		svc.On("Settle", mock.Anything, mock.Anything).Return(nil, repository.ErrTransactionNotFound)

		ctx := setupTestContext("POST", "/settlements", settlementBody(t, settlementRequest{
			TransactionID: 42, Type: string(model.TransactionTypeMembership), MembershipID: 3,
		}))
		handler.CreateSettlement(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("concurrent settlement maps to 409", func(t *testing.T) {
		svc := new(MockSettlementService)
		handler := NewSettlementHandler(svc, nil)

		svc.On("Settle", mock.Anything, mock.Anything).Return(nil, services.ErrSettlementInProgress)

		ctx := setupTestContext("POST", "/settlements", settlementBody(t, settlementRequest{
			TransactionID: 42, Type: string(model.TransactionTypeMembership), MembershipID: 3,
		}))
		handler.CreateSettlement(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})
}
