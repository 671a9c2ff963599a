package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.WebhookEvent{},
		&model.ProcessedWebhook{},
		&model.Job{},
		&model.Order{},
		&model.LedgerEntry{},
		&model.CommissionRun{},
		&model.SellerRevenue{},
		&model.Withdrawal{},
		&model.PayoutAccount{},
		&model.Alert{},
		&model.Notification{},
		&model.SellerStats{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// customIndexes are the partial and composite indexes GORM tags cannot express
var customIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_jobs_claimable ON jobs (priority DESC, created_at ASC) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_processing_started ON jobs (started_at) WHERE status = 'processing'`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_events_dependency ON webhook_events (resource_id, event_type, event_created DESC) WHERE processed = false`,
	`CREATE INDEX IF NOT EXISTS idx_seller_revenues_available ON seller_revenues (user_id, available_at, created_at) WHERE status = 'available'`,
	`CREATE INDEX IF NOT EXISTS idx_seller_revenues_due ON seller_revenues (available_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_pending ON withdrawals (created_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_orders_delivered ON orders (delivered_at) WHERE status = 'delivered'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payout_accounts_stripe ON payout_accounts (stripe_account_id) WHERE stripe_account_id IS NOT NULL`,
}

func createCustomIndexes(db *gorm.DB) error {
	for _, stmt := range customIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
