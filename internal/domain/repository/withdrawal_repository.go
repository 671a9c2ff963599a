package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// RevenueRepository reads and releases revenue rows.
type RevenueRepository interface {
	AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	// ReleaseDue makes pending rows whose hold period ended available.
	ReleaseDue(ctx context.Context, now time.Time) (int64, error)
}

// FailureOutcome reports what ConfirmFailure did. Confirmed is false when
// the withdrawal was already terminal.
type FailureOutcome struct {
	Confirmed bool
	Released  int64
	Forfeited int64
}

// WithdrawalRepository persists withdrawals and the revenue rows they hold.
type WithdrawalRepository interface {
	// CreateWithReservation locks the user's available revenue rows, reserves
	// w.Amount from them and inserts w, all in one transaction. It fails with
	// INSUFFICIENT_FUNDS when the balance is too low.
	CreateWithReservation(ctx context.Context, w *model.Withdrawal) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	GetByPayoutID(ctx context.Context, payoutID string) (*model.Withdrawal, error)
	ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error)
	// ListStaleProcessing returns processing withdrawals claimed before
	// before that never recorded a transfer and are not under review.
	ListStaleProcessing(ctx context.Context, before time.Time, limit int) ([]*model.Withdrawal, error)

	// MarkProcessing moves pending -> processing; false when another worker
	// got there first.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	SetTransferID(ctx context.Context, id uuid.UUID, transferID string) error
	SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error

	// ConfirmSuccess moves processing -> completed and marks the reserved
	// rows withdrawn. False when the withdrawal was not processing.
	ConfirmSuccess(ctx context.Context, id uuid.UUID) (bool, error)
	// ConfirmFailure moves pending or processing -> failed and returns the
	// reserved rows to available. Rows of orders whose commissions were
	// reversed meanwhile are cancelled instead.
	ConfirmFailure(ctx context.Context, id uuid.UUID, reason string) (FailureOutcome, error)
	// FlagForReview marks a processing withdrawal for manual intervention.
	FlagForReview(ctx context.Context, id uuid.UUID, reason string) error
}

// PayoutAccountRepository reads payout destinations.
type PayoutAccountRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PayoutAccount, error)
	// SyncFromProcessor updates payouts_enabled for a connected account.
	// Returns false when no local account references it.
	SyncFromProcessor(ctx context.Context, stripeAccountID string, payoutsEnabled bool) (bool, error)
}
