package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type alertRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAlertRepository creates the alert repository
func NewAlertRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AlertRepository {
	return &alertRepository{db: db, logger: logger}
}

func (r *alertRepository) Create(ctx context.Context, alert *model.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to persist alert: %w", err)
	}
	return nil
}

type notificationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewNotificationRepository creates the notification repository
func NewNotificationRepository(db *gorm.DB, logger *zap.Logger) domainRepo.NotificationRepository {
	return &notificationRepository{db: db, logger: logger}
}

// Create inserts n unless the producing job already wrote one
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_id"}}, DoNothing: true}).
		Create(n)
	if result.Error != nil {
		r.logger.Error("Failed to create notification",
			zap.String("user_id", n.UserID.String()),
			zap.String("job_id", n.JobID.String()),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to create notification: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteReadBefore prunes read notifications
func (r *notificationRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", before).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete read notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

type analyticsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAnalyticsRepository creates the analytics repository
func NewAnalyticsRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db, logger: logger}
}

const sellerStatsSQL = `SELECT
	COUNT(*) FILTER (WHERE status = 'completed') AS completed_orders,
	COUNT(*) FILTER (WHERE status = 'refunded') AS refunded_orders,
	COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0) AS gross_revenue
FROM orders WHERE seller_id = ?`

const sellerNetSQL = `SELECT COALESCE(SUM(amount), 0) FROM seller_revenues
WHERE user_id = ? AND kind = 'seller' AND status <> 'cancelled'`

// RefreshSellerStats recomputes and upserts the seller aggregate
func (r *analyticsRepository) RefreshSellerStats(ctx context.Context, sellerID uuid.UUID) (*model.SellerStats, error) {
	stats := &model.SellerStats{SellerID: sellerID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(sellerStatsSQL, sellerID).
			Row().
			Scan(&stats.CompletedOrders, &stats.RefundedOrders, &stats.GrossRevenue); err != nil {
			return fmt.Errorf("failed to aggregate orders: %w", err)
		}
		if err := tx.Raw(sellerNetSQL, sellerID).Row().Scan(&stats.NetRevenue); err != nil {
			return fmt.Errorf("failed to aggregate revenues: %w", err)
		}

		stats.UpdatedAt = time.Now()
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}},
			UpdateAll: true,
		}).Create(stats).Error
	})
	if err != nil {
		r.logger.Error("Failed to refresh seller stats",
			zap.String("seller_id", sellerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to refresh seller stats: %w", err)
	}
	return stats, nil
}
