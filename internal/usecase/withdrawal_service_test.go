package usecase_test

import (
	"context"
	"errors"
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
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

type withdrawalFixture struct {
	withdrawals *MockWithdrawalRepository
	revenues    *MockRevenueRepository
	accounts    *MockPayoutAccountRepository
	queue       *MockJobRepository
	processor   *MockPaymentProcessor
	alerts      *MockAlerter
	service     *usecase.WithdrawalService
}

func newWithdrawalFixture() *withdrawalFixture {
	f := &withdrawalFixture{
		withdrawals: new(MockWithdrawalRepository),
		revenues:    new(MockRevenueRepository),
		accounts:    new(MockPayoutAccountRepository),
		queue:       new(MockJobRepository),
		processor:   new(MockPaymentProcessor),
		alerts:      new(MockAlerter),
	}
	f.service = usecase.NewWithdrawalService(f.withdrawals, f.revenues, f.accounts, f.queue, f.processor, f.alerts,
		config.WithdrawalConfig{MaxConcurrent: 2, BatchSize: 10, MinAmount: decimal.NewFromInt(10), Currency: "eur", StaleAfter: 30 * time.Minute},
		3, zap.NewNop())
	return f
}

func payoutAccount(userID uuid.UUID) *model.PayoutAccount {
	acct := "acct_123"
	return &model.PayoutAccount{
		UserID:          userID,
		Role:            model.RoleSeller,
		Active:          true,
		StripeAccountID: &acct,
		PayoutsEnabled:  true,
	}
}

func pendingWithdrawal(amount string) *model.Withdrawal {
	return &model.Withdrawal{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Amount:   decimal.RequireFromString(amount),
		Currency: "eur",
		Status:   model.WithdrawalStatusPending,
	}
}

func TestWithdrawalService_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves the amount", func(t *testing.T) {
		f := newWithdrawalFixture()
		userID := uuid.New()
		f.accounts.On("GetByUserID", ctx, userID).Return(payoutAccount(userID), nil)
		f.withdrawals.On("CreateWithReservation", ctx, mock.MatchedBy(func(w *model.Withdrawal) bool {
			return w.UserID == userID && w.Amount.Equal(decimal.NewFromInt(50)) && w.Status == model.WithdrawalStatusPending
		})).Return(nil)

		w, err := f.service.RequestWithdrawal(ctx, userID, decimal.NewFromInt(50))

		require.NoError(t, err)
		assert.Equal(t, "eur", w.Currency)
		f.withdrawals.AssertExpectations(t)
	})

	t.Run("below minimum", func(t *testing.T) {
		f := newWithdrawalFixture()
		_, err := f.service.RequestWithdrawal(ctx, uuid.New(), decimal.NewFromInt(5))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("sub-cent amount", func(t *testing.T) {
		f := newWithdrawalFixture()
		_, err := f.service.RequestWithdrawal(ctx, uuid.New(), decimal.RequireFromString("12.345"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("buyer account cannot withdraw", func(t *testing.T) {
		f := newWithdrawalFixture()
		userID := uuid.New()
		acct := payoutAccount(userID)
		acct.Role = model.RoleBuyer
		f.accounts.On("GetByUserID", ctx, userID).Return(acct, nil)

		_, err := f.service.RequestWithdrawal(ctx, userID, decimal.NewFromInt(50))

		assert.True(t, apperrors.HasCode(err, apperrors.ErrUnauthorized))
		f.withdrawals.AssertNotCalled(t, "CreateWithReservation", mock.Anything, mock.Anything)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newWithdrawalFixture()
		userID := uuid.New()
		f.accounts.On("GetByUserID", ctx, userID).Return(payoutAccount(userID), nil)
		f.withdrawals.On("CreateWithReservation", ctx, mock.Anything).
			Return(domainErrors.InsufficientFunds(decimal.NewFromInt(50), decimal.NewFromInt(20)))

		_, err := f.service.RequestWithdrawal(ctx, userID, decimal.NewFromInt(50))

		assert.True(t, apperrors.HasCode(err, apperrors.ErrInsufficientFunds))
	})
}

func TestWithdrawalService_ProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("submits transfer and payout with derived keys", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("25.00")

		f.withdrawals.On("ListPending", ctx, 10).Return([]*model.Withdrawal{w}, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, w.ID).Return(true, nil)
		f.accounts.On("GetByUserID", mock.Anything, w.UserID).Return(payoutAccount(w.UserID), nil)
		f.processor.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(r *provider.TransferRequest) bool {
			return r.IdempotencyKey == w.TransferIdempotencyKey() && r.Destination == "acct_123" &&
				r.Metadata["withdrawal_id"] == w.ID.String()
		})).Return("tr_1", nil)
		f.withdrawals.On("SetTransferID", mock.Anything, w.ID, "tr_1").Return(nil)
		f.processor.On("CreatePayout", mock.Anything, mock.MatchedBy(func(r *provider.PayoutRequest) bool {
			return r.IdempotencyKey == w.PayoutIdempotencyKey() && r.Account == "acct_123" &&
				r.Metadata["withdrawal_id"] == w.ID.String()
		})).Return("po_1", nil)
		f.withdrawals.On("SetPayoutID", mock.Anything, w.ID, "po_1").Return(nil)

		results, err := f.service.ProcessPending(ctx)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Success)
		assert.Equal(t, "tr_1", results[0].TransferID)
		assert.Equal(t, "po_1", results[0].PayoutID)
		f.withdrawals.AssertNotCalled(t, "ConfirmSuccess", mock.Anything, mock.Anything)
		f.processor.AssertExpectations(t)
	})

	t.Run("transfer failure restores the balance without aborting siblings", func(t *testing.T) {
		f := newWithdrawalFixture()
		failing := pendingWithdrawal("30.00")
		ok := pendingWithdrawal("40.00")
		claimed := pendingWithdrawal("50.00")

		f.withdrawals.On("ListPending", ctx, 10).Return([]*model.Withdrawal{failing, ok, claimed}, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, failing.ID).Return(true, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, ok.ID).Return(true, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, claimed.ID).Return(false, nil)
		f.accounts.On("GetByUserID", mock.Anything, mock.Anything).Return(payoutAccount(uuid.New()), nil)

		f.processor.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(r *provider.TransferRequest) bool {
			return r.IdempotencyKey == failing.TransferIdempotencyKey()
		})).Return("", errors.New("card declined"))
		f.withdrawals.On("ConfirmFailure", mock.Anything, failing.ID, "transfer failed").Return(domainRepo.FailureOutcome{Confirmed: true, Released: 1}, nil)
		f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

		f.processor.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(r *provider.TransferRequest) bool {
			return r.IdempotencyKey == ok.TransferIdempotencyKey()
		})).Return("tr_ok", nil)
		f.withdrawals.On("SetTransferID", mock.Anything, ok.ID, "tr_ok").Return(nil)
		f.processor.On("CreatePayout", mock.Anything, mock.Anything).Return("po_ok", nil)
		f.withdrawals.On("SetPayoutID", mock.Anything, ok.ID, "po_ok").Return(nil)

		results, err := f.service.ProcessPending(ctx)

		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, failing.ID, results[0].ID)
		assert.False(t, results[0].Success)
		assert.Equal(t, "transfer failed", results[0].Error)
		assert.True(t, results[1].Success)
		assert.True(t, results[2].Skipped)
		f.withdrawals.AssertCalled(t, "ConfirmFailure", mock.Anything, failing.ID, "transfer failed")
	})

	t.Run("payout failure after transfer is flagged for review", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("25.00")

		f.withdrawals.On("ListPending", ctx, 10).Return([]*model.Withdrawal{w}, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, w.ID).Return(true, nil)
		f.accounts.On("GetByUserID", mock.Anything, w.UserID).Return(payoutAccount(w.UserID), nil)
		f.processor.On("CreateTransfer", mock.Anything, mock.Anything).Return("tr_1", nil)
		f.withdrawals.On("SetTransferID", mock.Anything, w.ID, "tr_1").Return(nil)
		f.processor.On("CreatePayout", mock.Anything, mock.Anything).Return("", errors.New("bank rejected"))
		f.withdrawals.On("FlagForReview", mock.Anything, w.ID, "payout creation failed after transfer").Return(nil)
		f.alerts.On("Raise", mock.Anything, model.AlertSeverityCritical, "withdrawal_service", "payout creation failed after transfer", mock.Anything).Once()

		results, err := f.service.ProcessPending(ctx)

		require.NoError(t, err)
		assert.False(t, results[0].Success)
		f.withdrawals.AssertNotCalled(t, "ConfirmFailure", mock.Anything, mock.Anything, mock.Anything)
		f.alerts.AssertExpectations(t)
	})

	t.Run("claimed withdrawal settles after the caller goes away", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("30.00")
		callerCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var settleErr error
		f.withdrawals.On("ListPending", callerCtx, 10).Return([]*model.Withdrawal{w}, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, w.ID).Return(true, nil)
		f.accounts.On("GetByUserID", mock.Anything, w.UserID).Return(payoutAccount(w.UserID), nil)
		f.processor.On("CreateTransfer", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return("", errors.New("timeout"))
		f.withdrawals.On("ConfirmFailure", mock.Anything, w.ID, "transfer failed").
			Run(func(args mock.Arguments) { settleErr = args.Get(0).(context.Context).Err() }).
			Return(domainRepo.FailureOutcome{Confirmed: true, Released: 1}, nil)
		f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

		results, err := f.service.ProcessPending(callerCtx)

		require.NoError(t, err)
		assert.Equal(t, "transfer failed", results[0].Error)
		f.withdrawals.AssertCalled(t, "ConfirmFailure", mock.Anything, w.ID, "transfer failed")
		assert.NoError(t, settleErr)
	})

	t.Run("cancelled batch claims nothing", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("30.00")
		callerCtx, cancel := context.WithCancel(context.Background())
		f.withdrawals.On("ListPending", callerCtx, 10).Run(func(mock.Arguments) { cancel() }).
			Return([]*model.Withdrawal{w}, nil)

		results, err := f.service.ProcessPending(callerCtx)

		require.NoError(t, err)
		assert.True(t, results[0].Skipped)
		f.withdrawals.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything)
	})

	t.Run("failure on reversed revenue raises a warning", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("30.00")

		f.withdrawals.On("ListPending", ctx, 10).Return([]*model.Withdrawal{w}, nil)
		f.withdrawals.On("MarkProcessing", mock.Anything, w.ID).Return(true, nil)
		f.accounts.On("GetByUserID", mock.Anything, w.UserID).Return(payoutAccount(w.UserID), nil)
		f.processor.On("CreateTransfer", mock.Anything, mock.Anything).Return("", errors.New("card declined"))
		f.withdrawals.On("ConfirmFailure", mock.Anything, w.ID, "transfer failed").
			Return(domainRepo.FailureOutcome{Confirmed: true, Released: 1, Forfeited: 1}, nil)
		f.alerts.On("Raise", mock.Anything, model.AlertSeverityWarning, "withdrawal_service",
			"reversed revenue withheld from failed withdrawal",
			mock.MatchedBy(func(fields map[string]interface{}) bool { return fields["rows"] == int64(1) })).Once()
		f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.ProcessPending(ctx)

		require.NoError(t, err)
		f.alerts.AssertExpectations(t)
	})
}

func TestWithdrawalService_RecoverStale(t *testing.T) {
	ctx := context.Background()

	t.Run("flags stale withdrawals for review", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("30.00")
		w.Status = model.WithdrawalStatusProcessing
		claimedAt := time.Now().Add(-2 * time.Hour)
		w.ProcessedAt = &claimedAt

		f.withdrawals.On("ListStaleProcessing", ctx, mock.MatchedBy(func(before time.Time) bool {
			return time.Since(before) >= 30*time.Minute
		}), 10).Return([]*model.Withdrawal{w}, nil)
		f.withdrawals.On("FlagForReview", ctx, w.ID, "withdrawal stuck in processing").Return(nil)
		f.alerts.On("Raise", ctx, model.AlertSeverityCritical, "withdrawal_service", "withdrawal stuck in processing",
			mock.MatchedBy(func(fields map[string]interface{}) bool { return fields["withdrawal_id"] == w.ID.String() })).Once()

		flagged, err := f.service.RecoverStale(ctx)

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{w.ID}, flagged)
		f.withdrawals.AssertNotCalled(t, "ConfirmFailure", mock.Anything, mock.Anything, mock.Anything)
		f.alerts.AssertExpectations(t)
	})

	t.Run("nothing stale", func(t *testing.T) {
		f := newWithdrawalFixture()
		f.withdrawals.On("ListStaleProcessing", ctx, mock.Anything, 10).Return([]*model.Withdrawal{}, nil)

		flagged, err := f.service.RecoverStale(ctx)

		require.NoError(t, err)
		assert.Empty(t, flagged)
	})
}

func TestWithdrawalService_PayoutEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("payout paid confirms success", func(t *testing.T) {
		f := newWithdrawalFixture()
		payoutID := "po_1"
		w := pendingWithdrawal("25.00")
		w.Status = model.WithdrawalStatusProcessing
		w.PayoutID = &payoutID

		f.withdrawals.On("GetByPayoutID", ctx, payoutID).Return(w, nil)
		f.withdrawals.On("ConfirmSuccess", ctx, w.ID).Return(true, nil)
		f.queue.On("Enqueue", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.service.HandlePayoutPaid(ctx, payoutID, ""))
		f.withdrawals.AssertExpectations(t)
		f.queue.AssertExpectations(t)
	})

	t.Run("payout paid before payout id was stored", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("25.00")
		w.Status = model.WithdrawalStatusProcessing

		f.withdrawals.On("GetByPayoutID", ctx, "po_2").Return(nil, nil)
		f.withdrawals.On("GetByID", ctx, w.ID).Return(w, nil)
		f.withdrawals.On("SetPayoutID", ctx, w.ID, "po_2").Return(nil)
		f.withdrawals.On("ConfirmSuccess", ctx, w.ID).Return(true, nil)
		f.queue.On("Enqueue", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.service.HandlePayoutPaid(ctx, "po_2", w.ID.String()))
		f.withdrawals.AssertExpectations(t)
	})

	t.Run("repeated payout paid is a no-op", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("25.00")
		w.Status = model.WithdrawalStatusCompleted
		f.withdrawals.On("GetByPayoutID", ctx, "po_1").Return(w, nil)

		require.NoError(t, f.service.HandlePayoutPaid(ctx, "po_1", ""))
		f.withdrawals.AssertNotCalled(t, "ConfirmSuccess", mock.Anything, mock.Anything)
	})

	t.Run("payout failed flags for review", func(t *testing.T) {
		f := newWithdrawalFixture()
		w := pendingWithdrawal("25.00")
		w.Status = model.WithdrawalStatusProcessing
		f.withdrawals.On("GetByPayoutID", ctx, "po_1").Return(w, nil)
		f.withdrawals.On("FlagForReview", ctx, w.ID, "payout failed").Return(nil)
		f.alerts.On("Raise", ctx, model.AlertSeverityCritical, "withdrawal_service", "payout failed",
			mock.MatchedBy(func(fields map[string]interface{}) bool { return fields["failure_reason"] == "account_closed" })).Once()

		require.NoError(t, f.service.HandlePayoutFailed(ctx, "po_1", "", "account_closed"))
		f.withdrawals.AssertNotCalled(t, "ConfirmFailure", mock.Anything, mock.Anything, mock.Anything)
		f.alerts.AssertExpectations(t)
	})
}
