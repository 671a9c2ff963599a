package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type revenueRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRevenueRepository creates the revenue repository
func NewRevenueRepository(db *gorm.DB, logger *zap.Logger) domainRepo.RevenueRepository {
	return &revenueRepository{db: db, logger: logger}
}

// AvailableBalance sums the user's available revenue
func (r *revenueRepository) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.SellerRevenue{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ?", userID, model.RevenueStatusAvailable).
		Scan(&balance).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum available balance: %w", err)
	}
	return balance, nil
}

// ReleaseDue makes held revenue available
func (r *revenueRepository) ReleaseDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SellerRevenue{}).
		Where("status = ? AND available_at <= ?", model.RevenueStatusPending, now).
		Updates(map[string]interface{}{"status": model.RevenueStatusAvailable, "updated_at": now})
	if result.Error != nil {
		r.logger.Error("Failed to release revenues", zap.Error(result.Error))
		return 0, fmt.Errorf("failed to release revenues: %w", result.Error)
	}
	return result.RowsAffected, nil
}

type payoutAccountRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPayoutAccountRepository creates the payout account repository
func NewPayoutAccountRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PayoutAccountRepository {
	return &payoutAccountRepository{db: db, logger: logger}
}

func (r *payoutAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PayoutAccount, error) {
	var account model.PayoutAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payout account: %w", err)
	}
	return &account, nil
}

// SyncFromProcessor mirrors the connected account's payout capability
func (r *payoutAccountRepository) SyncFromProcessor(ctx context.Context, stripeAccountID string, payoutsEnabled bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PayoutAccount{}).
		Where("stripe_account_id = ?", stripeAccountID).
		Updates(map[string]interface{}{"payouts_enabled": payoutsEnabled, "updated_at": time.Now()})
	if result.Error != nil {
		return false, fmt.Errorf("failed to sync payout account: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
