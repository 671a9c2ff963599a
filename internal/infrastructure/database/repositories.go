package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/adapter/repository"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Event         domainRepo.EventRepository
	Job           domainRepo.JobRepository
	Order         domainRepo.OrderRepository
	Commission    domainRepo.CommissionRepository
	Revenue       domainRepo.RevenueRepository
	Withdrawal    domainRepo.WithdrawalRepository
	PayoutAccount domainRepo.PayoutAccountRepository
	Alert         domainRepo.AlertRepository
	Notification  domainRepo.NotificationRepository
	Analytics     domainRepo.AnalyticsRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Event:         repository.NewEventRepository(db, logger),
		Job:           repository.NewJobRepository(db, logger),
		Order:         repository.NewOrderRepository(db, logger),
		Commission:    repository.NewCommissionRepository(db, logger),
		Revenue:       repository.NewRevenueRepository(db, logger),
		Withdrawal:    repository.NewWithdrawalRepository(db, logger),
		PayoutAccount: repository.NewPayoutAccountRepository(db, logger),
		Alert:         repository.NewAlertRepository(db, logger),
		Notification:  repository.NewNotificationRepository(db, logger),
		Analytics:     repository.NewAnalyticsRepository(db, logger),
	}
}
