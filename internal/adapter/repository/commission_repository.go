package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type commissionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCommissionRepository creates the ledger repository
func NewCommissionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CommissionRepository {
	return &commissionRepository{
		db:     db,
		logger: logger,
	}
}

var commissionRunConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "order_id"}, {Name: "kind"}},
	DoNothing: true,
}

// insertRun claims the (order, kind) slot. False means another run owns it.
func insertRun(tx *gorm.DB, run *model.CommissionRun) (bool, error) {
	res := tx.Clauses(commissionRunConflict).Create(run)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert commission run: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type groupSums struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// verifyGroupBalance re-reads the stored group so the check covers what was
// actually written.
func verifyGroupBalance(tx *gorm.DB, groupID uuid.UUID) error {
	var sums groupSums
	err := tx.Model(&model.LedgerEntry{}).
		Select(`COALESCE(SUM(CASE WHEN entry_type = 'debit' THEN amount ELSE 0 END), 0) AS debits,
COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE 0 END), 0) AS credits`).
		Where("transaction_group_id = ?", groupID).
		Scan(&sums).Error
	if err != nil {
		return fmt.Errorf("failed to sum ledger group: %w", err)
	}
	if sums.Debits.Sub(sums.Credits).Abs().GreaterThan(model.LedgerTolerance) {
		return domainErrors.LedgerImbalance(groupID.String(), sums.Debits, sums.Credits)
	}
	return nil
}

// RecordDistribution books an order's commissions once
func (r *commissionRepository) RecordDistribution(ctx context.Context, d *domainRepo.Distribution) (bool, error) {
	inserted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := insertRun(tx, d.Run)
		if err != nil || !ok {
			return err
		}

		if err := tx.Create(d.Entries).Error; err != nil {
			return fmt.Errorf("failed to insert ledger entries: %w", err)
		}
		if err := verifyGroupBalance(tx, d.Run.TransactionGroupID); err != nil {
			return err
		}
		if len(d.Revenues) > 0 {
			if err := tx.Create(d.Revenues).Error; err != nil {
				return fmt.Errorf("failed to insert revenues: %w", err)
			}
		}
		if len(d.Jobs) > 0 {
			if err := tx.Create(d.Jobs).Error; err != nil {
				return fmt.Errorf("failed to enqueue follow-up jobs: %w", err)
			}
		}

		inserted = true
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to record commission distribution",
			zap.String("order_id", d.Run.OrderID.String()),
			zap.Error(err))
		return false, err
	}

	return inserted, nil
}

// RecordReversal books the mirror group and cancels unreleased revenue
func (r *commissionRepository) RecordReversal(ctx context.Context, rv *domainRepo.Reversal) (bool, []*model.SellerRevenue, error) {
	inserted := false
	var unrecovered []*model.SellerRevenue

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := insertRun(tx, rv.Run)
		if err != nil || !ok {
			return err
		}

		if err := tx.Create(rv.Entries).Error; err != nil {
			return fmt.Errorf("failed to insert reversal entries: %w", err)
		}
		if err := verifyGroupBalance(tx, rv.Run.TransactionGroupID); err != nil {
			return err
		}

		var revenues []*model.SellerRevenue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", rv.Run.OrderID).
			Find(&revenues).Error; err != nil {
			return fmt.Errorf("failed to lock order revenues: %w", err)
		}

		var cancel []uuid.UUID
		for _, rev := range revenues {
			switch rev.Status {
			case model.RevenueStatusPending, model.RevenueStatusAvailable:
				cancel = append(cancel, rev.ID)
			case model.RevenueStatusReserved, model.RevenueStatusWithdrawn:
				unrecovered = append(unrecovered, rev)
			}
		}

		if len(cancel) > 0 {
			if err := tx.Model(&model.SellerRevenue{}).
				Where("id IN ?", cancel).
				Update("status", model.RevenueStatusCancelled).Error; err != nil {
				return fmt.Errorf("failed to cancel revenues: %w", err)
			}
		}

		inserted = true
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to record commission reversal",
			zap.String("order_id", rv.Run.OrderID.String()),
			zap.Error(err))
		return false, nil, err
	}

	return inserted, unrecovered, nil
}

// GetRun returns nil when the order has no run of kind
func (r *commissionRepository) GetRun(ctx context.Context, orderID uuid.UUID, kind model.CommissionRunKind) (*model.CommissionRun, error) {
	var run model.CommissionRun
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND kind = ?", orderID, kind).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get commission run: %w", err)
	}
	return &run, nil
}

// GetEntries returns the legs of a transaction group
func (r *commissionRepository) GetEntries(ctx context.Context, groupID uuid.UUID) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("transaction_group_id = ?", groupID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}
