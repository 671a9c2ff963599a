package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// WithdrawalResult is the outcome of one withdrawal in a batch.
type WithdrawalResult struct {
	ID         uuid.UUID `json:"id"`
	Success    bool      `json:"success"`
	Skipped    bool      `json:"skipped,omitempty"`
	TransferID string    `json:"transfer_id,omitempty"`
	PayoutID   string    `json:"payout_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// WithdrawalService reserves balances and pays them out through the
// processor. Completion is confirmed only by the payout.paid event.
type WithdrawalService struct {
	withdrawals domainRepo.WithdrawalRepository
	revenues    domainRepo.RevenueRepository
	accounts    domainRepo.PayoutAccountRepository
	queue       domainRepo.JobRepository
	processor   provider.PaymentProcessor
	alerts      Alerter
	jobs        jobFactory
	cfg         config.WithdrawalConfig
	logger      *zap.Logger
}

// NewWithdrawalService creates a new withdrawal service instance
func NewWithdrawalService(
	withdrawals domainRepo.WithdrawalRepository,
	revenues domainRepo.RevenueRepository,
	accounts domainRepo.PayoutAccountRepository,
	queue domainRepo.JobRepository,
	processor provider.PaymentProcessor,
	alerts Alerter,
	cfg config.WithdrawalConfig,
	maxAttempts int,
	logger *zap.Logger,
) *WithdrawalService {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &WithdrawalService{
		withdrawals: withdrawals,
		revenues:    revenues,
		accounts:    accounts,
		queue:       queue,
		processor:   processor,
		alerts:      alerts,
		jobs:        newJobFactory(maxAttempts),
		cfg:         cfg,
		logger:      logger,
	}
}

// RequestWithdrawal reserves amount from the user's available balance and
// returns the pending withdrawal.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Withdrawal, error) {
	if !amount.Equal(amount.Round(2)) {
		return nil, domainErrors.InvalidArgument("amount must have at most two decimals")
	}
	if amount.LessThan(s.cfg.MinAmount) {
		return nil, domainErrors.InvalidArgument("amount is below the minimum withdrawal of "+s.cfg.MinAmount.StringFixed(2)).
			WithDetail("min_amount", s.cfg.MinAmount.StringFixed(2))
	}

	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.CanWithdraw() {
		return nil, domainErrors.Forbidden("no payout-enabled account for this user")
	}

	w := &model.Withdrawal{
		ID:       uuid.New(),
		UserID:   userID,
		Amount:   amount,
		Currency: s.cfg.Currency,
		Status:   model.WithdrawalStatusPending,
	}
	if err := s.withdrawals.CreateWithReservation(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", amount.StringFixed(2)))
	return w, nil
}

// Balance returns the user's available balance
func (s *WithdrawalService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.revenues.AvailableBalance(ctx, userID)
}

// ProcessPending processes one batch of pending withdrawals with at most
// MaxConcurrent in flight. Results keep the order of the batch.
func (s *WithdrawalService) ProcessPending(ctx context.Context) ([]WithdrawalResult, error) {
	pending, err := s.withdrawals.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	results := make([]WithdrawalResult, len(pending))
	if len(pending) == 0 {
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, w := range pending {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = WithdrawalResult{ID: w.ID, Skipped: true}
				return nil
			}
			// A claimed withdrawal must reach failed or review even if the
			// caller goes away mid-flight.
			results[i] = s.process(context.WithoutCancel(ctx), w)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	s.logger.Info("Withdrawal batch processed",
		zap.Int("count", len(results)),
		zap.Int("successful", succeeded))
	return results, nil
}

func (s *WithdrawalService) process(ctx context.Context, w *model.Withdrawal) WithdrawalResult {
	res := WithdrawalResult{ID: w.ID}
	log := s.logger.With(zap.String("withdrawal_id", w.ID.String()))

	claimed, err := s.withdrawals.MarkProcessing(ctx, w.ID)
	if err != nil {
		apperrors.LogError(log, err, "Failed to claim withdrawal")
		res.Error = "claim failed"
		return res
	}
	if !claimed {
		res.Skipped = true
		return res
	}

	account, err := s.accounts.GetByUserID(ctx, w.UserID)
	if err != nil {
		apperrors.LogError(log, err, "Failed to load payout account")
		res.Error = s.fail(ctx, w, "payout account lookup failed")
		return res
	}
	if account == nil || !account.CanWithdraw() {
		res.Error = s.fail(ctx, w, "payout account not eligible")
		return res
	}
	destination := *account.StripeAccountID
	metadata := map[string]string{
		"withdrawal_id": w.ID.String(),
		"user_id":       w.UserID.String(),
	}

	transferID, err := s.processor.CreateTransfer(ctx, &provider.TransferRequest{
		Amount:         w.Amount,
		Currency:       w.Currency,
		Destination:    destination,
		IdempotencyKey: w.TransferIdempotencyKey(),
		Metadata:       metadata,
	})
	if err != nil {
		apperrors.LogError(log, err, "Transfer failed")
		res.Error = s.fail(ctx, w, "transfer failed")
		return res
	}
	res.TransferID = transferID
	if err := s.withdrawals.SetTransferID(ctx, w.ID, transferID); err != nil {
		apperrors.LogError(log, err, "Failed to persist transfer id", zap.String("transfer_id", transferID))
	}

	payoutID, err := s.processor.CreatePayout(ctx, &provider.PayoutRequest{
		Amount:         w.Amount,
		Currency:       w.Currency,
		Account:        destination,
		IdempotencyKey: w.PayoutIdempotencyKey(),
		Metadata:       metadata,
	})
	if err != nil {
		apperrors.LogError(log, err, "Payout failed after transfer", zap.String("transfer_id", transferID))
		s.review(ctx, w, "payout creation failed after transfer", map[string]interface{}{
			"transfer_id": transferID,
			"error":       err.Error(),
		})
		res.Error = "payout failed, flagged for review"
		return res
	}
	res.PayoutID = payoutID
	if err := s.withdrawals.SetPayoutID(ctx, w.ID, payoutID); err != nil {
		// payout.paid still resolves the withdrawal through its metadata.
		apperrors.LogError(log, err, "Failed to persist payout id", zap.String("payout_id", payoutID))
	}

	log.Info("Withdrawal submitted",
		zap.String("transfer_id", transferID),
		zap.String("payout_id", payoutID))
	res.Success = true
	return res
}

// fail restores the reserved balance and returns the public error text.
func (s *WithdrawalService) fail(ctx context.Context, w *model.Withdrawal, reason string) string {
	outcome, err := s.withdrawals.ConfirmFailure(ctx, w.ID, reason)
	if err != nil {
		apperrors.LogError(s.logger, err, "Failed to confirm withdrawal failure",
			zap.String("withdrawal_id", w.ID.String()))
		return reason
	}
	if !outcome.Confirmed {
		return reason
	}
	if outcome.Forfeited > 0 {
		s.alerts.Raise(ctx, model.AlertSeverityWarning, "withdrawal_service",
			"reversed revenue withheld from failed withdrawal", map[string]interface{}{
				"withdrawal_id": w.ID.String(),
				"user_id":       w.UserID.String(),
				"rows":          outcome.Forfeited,
			})
	}
	s.notify(ctx, w, "withdrawal_failed", "Your withdrawal failed")
	return reason
}

// RecoverStale flags withdrawals left in processing without a transfer id
// for longer than the stale threshold. Whether the transfer reached the
// processor is unknown, so the reservation is kept for manual resolution.
func (s *WithdrawalService) RecoverStale(ctx context.Context) ([]uuid.UUID, error) {
	stale, err := s.withdrawals.ListStaleProcessing(ctx, time.Now().Add(-s.cfg.StaleAfter), s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	flagged := make([]uuid.UUID, 0, len(stale))
	for _, w := range stale {
		fields := map[string]interface{}{}
		if w.ProcessedAt != nil {
			fields["processed_at"] = w.ProcessedAt.Format(time.RFC3339)
		}
		s.review(ctx, w, "withdrawal stuck in processing", fields)
		flagged = append(flagged, w.ID)
	}
	if len(flagged) > 0 {
		s.logger.Warn("Stale withdrawals flagged for review", zap.Int("count", len(flagged)))
	}
	return flagged, nil
}

func (s *WithdrawalService) review(ctx context.Context, w *model.Withdrawal, reason string, fields map[string]interface{}) {
	if err := s.withdrawals.FlagForReview(ctx, w.ID, reason); err != nil {
		apperrors.LogError(s.logger, err, "Failed to flag withdrawal for review",
			zap.String("withdrawal_id", w.ID.String()))
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["withdrawal_id"] = w.ID.String()
	fields["user_id"] = w.UserID.String()
	fields["amount"] = w.Amount.StringFixed(2)
	s.alerts.Raise(ctx, model.AlertSeverityCritical, "withdrawal_service", reason, fields)
}

func (s *WithdrawalService) notify(ctx context.Context, w *model.Withdrawal, kind, title string) {
	job, err := s.jobs.notification(model.SendNotificationPayload{
		UserID:  w.UserID,
		Kind:    kind,
		Title:   title,
		Message: "Withdrawal of " + w.Amount.StringFixed(2) + " " + w.Currency,
		Data:    map[string]string{"withdrawal_id": w.ID.String()},
	})
	if err == nil {
		err = s.queue.Enqueue(ctx, job)
	}
	if err != nil {
		apperrors.LogError(s.logger, err, "Failed to enqueue withdrawal notification",
			zap.String("withdrawal_id", w.ID.String()))
	}
}

func (s *WithdrawalService) byPayout(ctx context.Context, payoutID, withdrawalID string) (*model.Withdrawal, error) {
	w, err := s.withdrawals.GetByPayoutID(ctx, payoutID)
	if err != nil || w != nil {
		return w, err
	}
	if withdrawalID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(withdrawalID)
	if err != nil {
		s.logger.Warn("Invalid withdrawal id in payout metadata",
			zap.String("payout_id", payoutID),
			zap.String("withdrawal_id", withdrawalID))
		return nil, nil
	}
	return s.withdrawals.GetByID(ctx, id)
}

// HandlePayoutPaid confirms the withdrawal the payout belongs to
func (s *WithdrawalService) HandlePayoutPaid(ctx context.Context, payoutID, withdrawalID string) error {
	w, err := s.byPayout(ctx, payoutID, withdrawalID)
	if err != nil {
		return err
	}
	if w == nil {
		s.logger.Info("No withdrawal for payout", zap.String("payout_id", payoutID))
		return nil
	}
	if w.Status == model.WithdrawalStatusCompleted {
		return nil
	}
	if w.PayoutID == nil && w.Status == model.WithdrawalStatusProcessing {
		if err := s.withdrawals.SetPayoutID(ctx, w.ID, payoutID); err != nil {
			return err
		}
	}

	ok, err := s.withdrawals.ConfirmSuccess(ctx, w.ID)
	if err != nil {
		return err
	}
	if !ok {
		s.alerts.Raise(ctx, model.AlertSeverityWarning, "withdrawal_service",
			"payout paid for withdrawal not in processing", map[string]interface{}{
				"withdrawal_id": w.ID.String(),
				"payout_id":     payoutID,
				"status":        string(w.Status),
			})
		return nil
	}

	s.logger.Info("Withdrawal completed",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("payout_id", payoutID))
	s.notify(ctx, w, "withdrawal_completed", "Your withdrawal was paid")
	return nil
}

// HandlePayoutFailed flags the withdrawal for manual review. The reserved
// balance is kept because the transfer already moved the funds.
func (s *WithdrawalService) HandlePayoutFailed(ctx context.Context, payoutID, withdrawalID, reason string) error {
	w, err := s.byPayout(ctx, payoutID, withdrawalID)
	if err != nil {
		return err
	}
	if w == nil {
		s.logger.Info("No withdrawal for payout", zap.String("payout_id", payoutID))
		return nil
	}
	if w.RequiresReview {
		return nil
	}
	s.review(ctx, w, "payout failed", map[string]interface{}{
		"payout_id":      payoutID,
		"failure_reason": reason,
		"status":         string(w.Status),
	})
	return nil
}
