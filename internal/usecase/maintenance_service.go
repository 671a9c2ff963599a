package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/messaging"
)

// NotificationChannel is the pub/sub channel of a user's notifications.
func NotificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// MaintenanceService runs notification, analytics and housekeeping jobs.
type MaintenanceService struct {
	events        domainRepo.EventRepository
	notifications domainRepo.NotificationRepository
	analytics     domainRepo.AnalyticsRepository
	revenues      domainRepo.RevenueRepository
	queue         domainRepo.JobRepository
	publisher     messaging.Publisher
	jobs          jobFactory
	retentionDays int
	logger        *zap.Logger
}

// NewMaintenanceService creates a new maintenance service instance
func NewMaintenanceService(
	events domainRepo.EventRepository,
	notifications domainRepo.NotificationRepository,
	analytics domainRepo.AnalyticsRepository,
	revenues domainRepo.RevenueRepository,
	queue domainRepo.JobRepository,
	publisher messaging.Publisher,
	retentionDays, maxAttempts int,
	logger *zap.Logger,
) *MaintenanceService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &MaintenanceService{
		events:        events,
		notifications: notifications,
		analytics:     analytics,
		revenues:      revenues,
		queue:         queue,
		publisher:     publisher,
		jobs:          newJobFactory(maxAttempts),
		retentionDays: retentionDays,
		logger:        logger,
	}
}

type notificationMessage struct {
	ID        uuid.UUID         `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// SendNotification stores the notification of jobID once and publishes it
func (s *MaintenanceService) SendNotification(ctx context.Context, jobID uuid.UUID, p model.SendNotificationPayload) error {
	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    p.UserID,
		JobID:     jobID,
		Kind:      p.Kind,
		Title:     p.Title,
		Message:   p.Message,
		CreatedAt: time.Now().UTC(),
	}
	if len(p.Data) > 0 {
		data, err := json.Marshal(p.Data)
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(data)
	}

	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		return err
	}
	if !created {
		s.logger.Debug("Notification already sent", zap.String("job_id", jobID.String()))
		return nil
	}

	msg := notificationMessage{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Data:      p.Data,
		CreatedAt: n.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, NotificationChannel(p.UserID), msg); err != nil {
		// Stored notifications are still listed by the client.
		s.logger.Warn("Failed to publish notification",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", p.UserID.String()),
			zap.Error(err))
	}
	return nil
}

// SyncAnalytics recomputes the seller aggregates
func (s *MaintenanceService) SyncAnalytics(ctx context.Context, sellerID uuid.UUID) error {
	stats, err := s.analytics.RefreshSellerStats(ctx, sellerID)
	if err != nil {
		return err
	}
	s.logger.Debug("Seller stats refreshed",
		zap.String("seller_id", sellerID.String()),
		zap.Int64("completed_orders", stats.CompletedOrders))
	return nil
}

// Cleanup prunes replay rows and read notifications older than the
// retention window. Jobs and the event log are kept.
func (s *MaintenanceService) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = s.retentionDays
	}
	before := time.Now().AddDate(0, 0, -retentionDays)

	replays, err := s.events.DeleteReplaysBefore(ctx, before)
	if err != nil {
		return err
	}
	notifications, err := s.notifications.DeleteReadBefore(ctx, before)
	if err != nil {
		return err
	}

	s.logger.Info("Cleanup completed",
		zap.Int("retention_days", retentionDays),
		zap.Int64("replays_deleted", replays),
		zap.Int64("notifications_deleted", notifications))
	return nil
}

// ReleaseRevenues makes revenue past its hold period available
func (s *MaintenanceService) ReleaseRevenues(ctx context.Context) error {
	released, err := s.revenues.ReleaseDue(ctx, time.Now())
	if err != nil {
		return err
	}
	if released > 0 {
		s.logger.Info("Revenues released", zap.Int64("count", released))
	}
	return nil
}

// Schedule enqueues a housekeeping job for the worker pool.
func (s *MaintenanceService) Schedule(ctx context.Context, jobType model.JobType) (*model.Job, error) {
	var (
		job *model.Job
		err error
	)
	switch jobType {
	case model.JobTypeCleanupData:
		job, err = s.jobs.job(jobType, model.CleanupDataPayload{RetentionDays: s.retentionDays}, model.PriorityCleanupData)
	case model.JobTypeReleaseRevenues:
		job, err = s.jobs.job(jobType, model.ReleaseRevenuesPayload{}, model.PriorityReleaseRevenues)
	default:
		return nil, domainErrors.InvalidArgument("job type " + string(jobType) + " cannot be scheduled")
	}
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("Maintenance job scheduled",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(jobType)))
	return job, nil
}
