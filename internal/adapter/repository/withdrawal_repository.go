package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type withdrawalRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWithdrawalRepository creates the withdrawal repository
func NewWithdrawalRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WithdrawalRepository {
	return &withdrawalRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWithReservation reserves the requested amount and inserts the withdrawal
func (r *withdrawalRepository) CreateWithReservation(ctx context.Context, w *model.Withdrawal) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []*model.SellerRevenue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ?", w.UserID, model.RevenueStatusAvailable).
			Order("available_at ASC, created_at ASC").
			Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to lock available revenues: %w", err)
		}

		plan, available, ok := model.PlanReservation(rows, w.Amount)
		if !ok {
			return domainErrors.InsufficientFunds(w.Amount, available)
		}

		if err := tx.Create(w).Error; err != nil {
			return fmt.Errorf("failed to insert withdrawal: %w", err)
		}

		now := time.Now()
		if len(plan.Whole) > 0 {
			if err := tx.Model(&model.SellerRevenue{}).
				Where("id IN ?", plan.Whole).
				Updates(map[string]interface{}{
					"status":        model.RevenueStatusReserved,
					"withdrawal_id": w.ID,
					"updated_at":    now,
				}).Error; err != nil {
				return fmt.Errorf("failed to reserve revenues: %w", err)
			}
		}

		if plan.Split != nil {
			var source *model.SellerRevenue
			for _, row := range rows {
				if row.ID == plan.Split.RowID {
					source = row
					break
				}
			}
			if err := tx.Model(&model.SellerRevenue{}).
				Where("id = ?", plan.Split.RowID).
				Updates(map[string]interface{}{"amount": plan.Split.Keep, "updated_at": now}).Error; err != nil {
				return fmt.Errorf("failed to split revenue row: %w", err)
			}
			withdrawalID := w.ID
			reserved := &model.SellerRevenue{
				ID:           uuid.New(),
				UserID:       source.UserID,
				OrderID:      source.OrderID,
				Kind:         source.Kind,
				Amount:       plan.Split.Take,
				Status:       model.RevenueStatusReserved,
				AvailableAt:  source.AvailableAt,
				WithdrawalID: &withdrawalID,
				CreatedAt:    source.CreatedAt,
				UpdatedAt:    now,
			}
			if err := tx.Create(reserved).Error; err != nil {
				return fmt.Errorf("failed to insert reserved revenue part: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		r.logger.Warn("Withdrawal reservation failed",
			zap.String("user_id", w.UserID.String()),
			zap.String("amount", w.Amount.String()),
			zap.Error(err))
		return err
	}

	r.logger.Info("Withdrawal created",
		zap.String("withdrawal_id", w.ID.String()),
		zap.String("user_id", w.UserID.String()),
		zap.String("amount", w.Amount.String()))
	return nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *withdrawalRepository) GetByPayoutID(ctx context.Context, payoutID string) (*model.Withdrawal, error) {
	return r.first(ctx, "payout_id = ?", payoutID)
}

func (r *withdrawalRepository) first(ctx context.Context, query string, arg interface{}) (*model.Withdrawal, error) {
	var w model.Withdrawal
	if err := r.db.WithContext(ctx).Where(query, arg).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return &w, nil
}

// ListPending returns the oldest pending withdrawals
func (r *withdrawalRepository) ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error) {
	var list []*model.Withdrawal
	query := r.db.WithContext(ctx).
		Where("status = ?", model.WithdrawalStatusPending).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		r.logger.Error("Failed to list pending withdrawals", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	return list, nil
}

// ListStaleProcessing returns withdrawals abandoned before a transfer id was stored
func (r *withdrawalRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int) ([]*model.Withdrawal, error) {
	var list []*model.Withdrawal
	query := r.db.WithContext(ctx).
		Where("status = ? AND transfer_id IS NULL AND requires_review = ? AND processed_at < ?",
			model.WithdrawalStatusProcessing, false, before).
		Order("processed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		r.logger.Error("Failed to list stale withdrawals", zap.Error(err))
		return nil, fmt.Errorf("failed to list stale withdrawals: %w", err)
	}
	return list, nil
}

// MarkProcessing claims a pending withdrawal
func (r *withdrawalRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE withdrawals SET status = 'processing', processed_at = NOW(), updated_at = NOW()
WHERE id = ? AND status = 'pending'`, id)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim withdrawal: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *withdrawalRepository) SetTransferID(ctx context.Context, id uuid.UUID, transferID string) error {
	return r.setField(ctx, id, "transfer_id", transferID)
}

func (r *withdrawalRepository) SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error {
	return r.setField(ctx, id, "payout_id", payoutID)
}

func (r *withdrawalRepository) setField(ctx context.Context, id uuid.UUID, column, value string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalStatusProcessing).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now()})
	if result.Error != nil {
		r.logger.Error("Failed to persist withdrawal reference",
			zap.String("withdrawal_id", id.String()),
			zap.String("column", column),
			zap.Error(result.Error))
		return fmt.Errorf("failed to set %s: %w", column, result.Error)
	}
	return nil
}

// ConfirmSuccess finalizes a processing withdrawal
func (r *withdrawalRepository) ConfirmSuccess(ctx context.Context, id uuid.UUID) (bool, error) {
	confirmed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Withdrawal{}).
			Where("id = ? AND status = ?", id, model.WithdrawalStatusProcessing).
			Updates(map[string]interface{}{
				"status":       model.WithdrawalStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete withdrawal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&model.SellerRevenue{}).
			Where("withdrawal_id = ? AND status = ?", id, model.RevenueStatusReserved).
			Updates(map[string]interface{}{"status": model.RevenueStatusWithdrawn, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to finalize reserved revenues: %w", err)
		}

		confirmed = true
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to confirm withdrawal success",
			zap.String("withdrawal_id", id.String()),
			zap.Error(err))
		return false, err
	}
	return confirmed, nil
}

// reversedOrders selects orders whose commissions were reversed.
const reversedOrders = "order_id IN (SELECT order_id FROM commission_runs WHERE kind = ?)"

// ConfirmFailure fails a withdrawal and releases its reserved balance
func (r *withdrawalRepository) ConfirmFailure(ctx context.Context, id uuid.UUID, reason string) (domainRepo.FailureOutcome, error) {
	var outcome domainRepo.FailureOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.Withdrawal{}).
			Where("id = ? AND status IN ?", id, []model.WithdrawalStatus{
				model.WithdrawalStatusPending,
				model.WithdrawalStatusProcessing,
			}).
			Updates(map[string]interface{}{
				"status":         model.WithdrawalStatusFailed,
				"failure_reason": truncate(reason, 2000),
				"failed_at":      now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to fail withdrawal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		forfeited := tx.Model(&model.SellerRevenue{}).
			Where("withdrawal_id = ? AND status = ?", id, model.RevenueStatusReserved).
			Where(reversedOrders, model.CommissionRunReverse).
			Updates(map[string]interface{}{
				"status":     model.RevenueStatusCancelled,
				"updated_at": now,
			})
		if forfeited.Error != nil {
			return fmt.Errorf("failed to cancel reversed revenues: %w", forfeited.Error)
		}

		released := tx.Model(&model.SellerRevenue{}).
			Where("withdrawal_id = ? AND status = ?", id, model.RevenueStatusReserved).
			Updates(map[string]interface{}{
				"status":        model.RevenueStatusAvailable,
				"withdrawal_id": nil,
				"updated_at":    now,
			})
		if released.Error != nil {
			return fmt.Errorf("failed to release reserved revenues: %w", released.Error)
		}

		outcome = domainRepo.FailureOutcome{
			Confirmed: true,
			Released:  released.RowsAffected,
			Forfeited: forfeited.RowsAffected,
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to confirm withdrawal failure",
			zap.String("withdrawal_id", id.String()),
			zap.Error(err))
		return domainRepo.FailureOutcome{}, err
	}
	if outcome.Forfeited > 0 {
		r.logger.Warn("Reserved revenue of reversed orders cancelled",
			zap.String("withdrawal_id", id.String()),
			zap.Int64("rows", outcome.Forfeited))
	}
	return outcome, nil
}

// FlagForReview marks a withdrawal for manual intervention
func (r *withdrawalRepository) FlagForReview(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Withdrawal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"requires_review": true,
			"review_reason":   truncate(reason, 2000),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to flag withdrawal: %w", result.Error)
	}
	return nil
}
