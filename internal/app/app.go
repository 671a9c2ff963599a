// Package app wires configuration, storage, the payment processor and the
// use cases into one graph shared by the server and worker binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	handlers "github.com/b2aeddine/backend-collabmarket-sub000/internal/adapter/handler/http"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/infrastructure/database"
	httpServer "github.com/b2aeddine/backend-collabmarket-sub000/internal/infrastructure/http"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/infrastructure/provider"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/messaging"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  messaging.RedisClient
	Repos  *database.Repositories

	Alerts      *usecase.AlertService
	Webhooks    *usecase.WebhookService
	Orders      *usecase.OrderService
	Commissions *usecase.CommissionService
	Withdrawals *usecase.WithdrawalService
	Maintenance *usecase.MaintenanceService
	Events      *usecase.EventProcessor
	Runner      *usecase.JobRunner
}

// New connects to Postgres and Redis, migrates when auto_migrate is set
// and builds the use cases. Without a Redis address alerts and
// notifications are only persisted.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logger); err != nil {
			_ = database.Close(db, logger)
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Repos:  database.NewRepositories(db, logger),
	}

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis.Addr != "" {
		client, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = database.Close(db, logger)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Redis = client
		publisher = client
	} else {
		logger.Warn("Redis not configured, alerts and notifications will not be published")
	}

	a.build(publisher)
	return a, nil
}

func (a *App) build(publisher messaging.Publisher) {
	cfg, logger, repos := a.Config, a.Logger, a.Repos
	providers := provider.NewProviders(cfg, logger)
	maxAttempts := cfg.Worker.MaxAttempts

	a.Alerts = usecase.NewAlertService(repos.Alert, publisher, cfg.Redis.AlertChannel, logger.Named("alerts"))
	a.Webhooks = usecase.NewWebhookService(providers.Verifier, repos.Event, maxAttempts, logger.Named("webhooks"))
	a.Orders = usecase.NewOrderService(repos.Order, providers.Processor, a.Alerts, cfg.Order, maxAttempts, logger.Named("orders"))
	a.Commissions = usecase.NewCommissionService(repos.Order, repos.Commission, a.Alerts, cfg.Commission, maxAttempts, logger.Named("commissions"))
	a.Withdrawals = usecase.NewWithdrawalService(
		repos.Withdrawal, repos.Revenue, repos.PayoutAccount, repos.Job,
		providers.Processor, a.Alerts, cfg.Withdrawal, maxAttempts, logger.Named("withdrawals"),
	)
	a.Maintenance = usecase.NewMaintenanceService(
		repos.Event, repos.Notification, repos.Analytics, repos.Revenue, repos.Job,
		publisher, cfg.Worker.RetentionDays, maxAttempts, logger.Named("maintenance"),
	)
	a.Events = usecase.NewEventProcessor(repos.Event, a.Orders, a.Withdrawals, repos.PayoutAccount, logger.Named("events"))

	dispatcher := usecase.NewJobDispatcher(a.Events, a.Commissions, a.Maintenance)
	a.Runner = usecase.NewJobRunner(repos.Job, dispatcher, a.Alerts, provider.RetryPolicy(cfg.Retry), cfg.Worker, logger.Named("jobs"))
}

// Ping checks the database and, when configured, Redis.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// HTTPHandlers builds the endpoint handlers over the use cases.
func (a *App) HTTPHandlers() httpServer.Handlers {
	return httpServer.Handlers{
		Webhook:     handlers.NewWebhookHandler(a.Logger, a.Webhooks),
		Jobs:        handlers.NewJobHandler(a.Logger, a.Runner, a.Withdrawals),
		Withdrawals: handlers.NewWithdrawalHandler(a.Logger, a.Withdrawals),
		Orders:      handlers.NewOrderHandler(a.Logger, a.Orders),
		Health:      a.Ping,
	}
}

// Close releases Redis and the database pool.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	if err := database.Close(a.DB, a.Logger); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
}
