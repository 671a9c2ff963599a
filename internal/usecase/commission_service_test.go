package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

func newCommissionService(orders *MockOrderRepository, ledger *MockCommissionRepository, alerts *MockAlerter) *usecase.CommissionService {
	return usecase.NewCommissionService(orders, ledger, alerts, config.CommissionConfig{
		PlatformRate: decimal.RequireFromString("0.10"),
		AgentRate:    decimal.RequireFromString("0.05"),
		HoldPeriod:   7 * 24 * time.Hour,
	}, 3, zap.NewNop())
}

func TestCommissionService_Distribute(t *testing.T) {
	ctx := context.Background()

	t.Run("books a balanced group with agent", func(t *testing.T) {
		orders := new(MockOrderRepository)
		ledger := new(MockCommissionRepository)
		service := newCommissionService(orders, ledger, new(MockAlerter))

		agentID := uuid.New()
		order := newOrder(model.OrderStatusCompleted, model.PaymentStatusSucceeded)
		order.AgentID = &agentID
		order.TotalAmount = decimal.RequireFromString("99.99")

		var recorded *domainRepo.Distribution
		orders.On("GetByID", ctx, order.ID).Return(order, nil)
		ledger.On("GetRun", ctx, order.ID, model.CommissionRunDistribute).Return(nil, nil)
		ledger.On("RecordDistribution", ctx, mock.Anything).
			Run(func(args mock.Arguments) { recorded = args.Get(1).(*domainRepo.Distribution) }).
			Return(true, nil)

		require.NoError(t, service.Distribute(ctx, order.ID))
		require.NotNil(t, recorded)

		assert.True(t, model.IsBalanced(recorded.Entries))
		debits, credits := model.SumEntries(recorded.Entries)
		assert.True(t, debits.Equal(order.TotalAmount))
		assert.True(t, credits.Equal(order.TotalAmount))
		assert.Len(t, recorded.Entries, 4)

		// Rounding residue stays on the seller leg.
		assert.Equal(t, "10.00", recorded.Run.PlatformAmount.StringFixed(2))
		assert.Equal(t, "5.00", recorded.Run.AgentAmount.StringFixed(2))
		assert.Equal(t, "84.99", recorded.Run.SellerAmount.StringFixed(2))

		require.Len(t, recorded.Revenues, 2)
		for _, r := range recorded.Revenues {
			assert.Equal(t, model.RevenueStatusPending, r.Status)
			assert.True(t, r.AvailableAt.After(time.Now().Add(6*24*time.Hour)))
		}

		var types []model.JobType
		for _, j := range recorded.Jobs {
			types = append(types, j.JobType)
		}
		assert.ElementsMatch(t, []model.JobType{model.JobTypeSyncAnalytics, model.JobTypeSendNotification}, types)
	})

	t.Run("explicit platform fee wins", func(t *testing.T) {
		orders := new(MockOrderRepository)
		ledger := new(MockCommissionRepository)
		service := newCommissionService(orders, ledger, new(MockAlerter))

		order := newOrder(model.OrderStatusCompleted, model.PaymentStatusSucceeded)
		order.PlatformFee = decimal.RequireFromString("15.50")

		var recorded *domainRepo.Distribution
		orders.On("GetByID", ctx, order.ID).Return(order, nil)
		ledger.On("GetRun", ctx, order.ID, model.CommissionRunDistribute).Return(nil, nil)
		ledger.On("RecordDistribution", ctx, mock.Anything).
			Run(func(args mock.Arguments) { recorded = args.Get(1).(*domainRepo.Distribution) }).
			Return(true, nil)

		require.NoError(t, service.Distribute(ctx, order.ID))
		assert.Equal(t, "84.50", recorded.Run.SellerAmount.StringFixed(2))
		assert.Len(t, recorded.Revenues, 1)
	})

	t.Run("already distributed is skipped", func(t *testing.T) {
		orders := new(MockOrderRepository)
		ledger := new(MockCommissionRepository)
		service := newCommissionService(orders, ledger, new(MockAlerter))

		order := newOrder(model.OrderStatusCompleted, model.PaymentStatusSucceeded)
		orders.On("GetByID", ctx, order.ID).Return(order, nil)
		ledger.On("GetRun", ctx, order.ID, model.CommissionRunDistribute).
			Return(&model.CommissionRun{OrderID: order.ID, TransactionGroupID: uuid.New()}, nil)

		assert.NoError(t, service.Distribute(ctx, order.ID))
		ledger.AssertNotCalled(t, "RecordDistribution", mock.Anything, mock.Anything)
	})

	t.Run("order no longer completed is skipped", func(t *testing.T) {
		orders := new(MockOrderRepository)
		ledger := new(MockCommissionRepository)
		service := newCommissionService(orders, ledger, new(MockAlerter))

		order := newOrder(model.OrderStatusRefunded, model.PaymentStatusRefunded)
		orders.On("GetByID", ctx, order.ID).Return(order, nil)

		assert.NoError(t, service.Distribute(ctx, order.ID))
		ledger.AssertNotCalled(t, "GetRun", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("imbalance raises a critical alert and is permanent", func(t *testing.T) {
		orders := new(MockOrderRepository)
		ledger := new(MockCommissionRepository)
		alerts := new(MockAlerter)
		service := newCommissionService(orders, ledger, alerts)

		order := newOrder(model.OrderStatusCompleted, model.PaymentStatusSucceeded)
		orders.On("GetByID", ctx, order.ID).Return(order, nil)
		ledger.On("GetRun", ctx, order.ID, model.CommissionRunDistribute).Return(nil, nil)
		ledger.On("RecordDistribution", ctx, mock.Anything).
			Return(false, domainErrors.LedgerImbalance("g", decimal.NewFromInt(100), decimal.NewFromInt(99)))
		alerts.On("Raise", ctx, model.AlertSeverityCritical, "commission_service", "ledger imbalance", mock.Anything).Once()

		err := service.Distribute(ctx, order.ID)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrLedgerImbalance))
		assert.True(t, apperrors.IsPermanent(err))
		alerts.AssertExpectations(t)
	})
}

func TestCommissionService_Reverse(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	sellerID := uuid.New()
	groupID := uuid.New()

	distribution := &model.CommissionRun{
		OrderID:            orderID,
		Kind:               model.CommissionRunDistribute,
		TransactionGroupID: groupID,
		SellerAmount:       decimal.NewFromInt(90),
		PlatformAmount:     decimal.NewFromInt(10),
	}
	original := []*model.LedgerEntry{
		{TransactionGroupID: groupID, Account: model.AccountEscrow, EntryType: model.EntryTypeDebit, Amount: decimal.NewFromInt(100)},
		{TransactionGroupID: groupID, UserID: &sellerID, Account: model.AccountSellerPayable, EntryType: model.EntryTypeCredit, Amount: decimal.NewFromInt(90)},
		{TransactionGroupID: groupID, Account: model.AccountPlatformRevenue, EntryType: model.EntryTypeCredit, Amount: decimal.NewFromInt(10)},
	}

	t.Run("mirrors the distribution group", func(t *testing.T) {
		ledger := new(MockCommissionRepository)
		service := newCommissionService(new(MockOrderRepository), ledger, new(MockAlerter))

		var recorded *domainRepo.Reversal
		ledger.On("GetRun", ctx, orderID, model.CommissionRunDistribute).Return(distribution, nil)
		ledger.On("GetRun", ctx, orderID, model.CommissionRunReverse).Return(nil, nil)
		ledger.On("GetEntries", ctx, groupID).Return(original, nil)
		ledger.On("RecordReversal", ctx, mock.Anything).
			Run(func(args mock.Arguments) { recorded = args.Get(1).(*domainRepo.Reversal) }).
			Return(true, nil, nil)

		require.NoError(t, service.Reverse(ctx, orderID, "refund"))
		require.Len(t, recorded.Entries, 3)
		assert.Equal(t, model.EntryTypeCredit, recorded.Entries[0].EntryType)
		assert.Equal(t, model.EntryTypeDebit, recorded.Entries[1].EntryType)
		assert.Equal(t, &sellerID, recorded.Entries[1].UserID)
		assert.NotEqual(t, groupID, recorded.Run.TransactionGroupID)
		assert.True(t, model.IsBalanced(recorded.Entries))
	})

	t.Run("withdrawn revenue raises a critical alert", func(t *testing.T) {
		ledger := new(MockCommissionRepository)
		alerts := new(MockAlerter)
		service := newCommissionService(new(MockOrderRepository), ledger, alerts)

		withdrawn := []*model.SellerRevenue{{ID: uuid.New(), UserID: sellerID, Amount: decimal.NewFromInt(90), Status: model.RevenueStatusWithdrawn}}
		ledger.On("GetRun", ctx, orderID, model.CommissionRunDistribute).Return(distribution, nil)
		ledger.On("GetRun", ctx, orderID, model.CommissionRunReverse).Return(nil, nil)
		ledger.On("GetEntries", ctx, groupID).Return(original, nil)
		ledger.On("RecordReversal", ctx, mock.Anything).Return(true, withdrawn, nil)
		alerts.On("Raise", ctx, model.AlertSeverityCritical, "commission_service", "reversed revenue was already withdrawn",
			mock.MatchedBy(func(fields map[string]interface{}) bool { return fields["amount"] == "90.00" })).Once()

		require.NoError(t, service.Reverse(ctx, orderID, "refund"))
		alerts.AssertExpectations(t)
	})

	t.Run("nothing distributed is a no-op", func(t *testing.T) {
		ledger := new(MockCommissionRepository)
		service := newCommissionService(new(MockOrderRepository), ledger, new(MockAlerter))
		ledger.On("GetRun", ctx, orderID, model.CommissionRunDistribute).Return(nil, nil)

		assert.NoError(t, service.Reverse(ctx, orderID, "refund"))
		ledger.AssertNotCalled(t, "RecordReversal", mock.Anything, mock.Anything)
	})
}
