package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/messaging"
)

// Alerter raises operational alerts. Raising never fails the caller.
type Alerter interface {
	Raise(ctx context.Context, severity model.AlertSeverity, source, message string, fields map[string]interface{})
}

// AlertService fans an alert out to the alerts table, the pub/sub channel
// and the log. A failing sink does not stop the others.
type AlertService struct {
	repo      domainRepo.AlertRepository
	publisher messaging.Publisher
	channel   string
	logger    *zap.Logger
}

// NewAlertService creates a new alert service instance
func NewAlertService(repo domainRepo.AlertRepository, publisher messaging.Publisher, channel string, logger *zap.Logger) *AlertService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &AlertService{
		repo:      repo,
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

type alertMessage struct {
	ID        uuid.UUID              `json:"id"`
	Severity  model.AlertSeverity    `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Raise records and publishes an alert
func (s *AlertService) Raise(ctx context.Context, severity model.AlertSeverity, source, message string, fields map[string]interface{}) {
	alert := &model.Alert{
		ID:        uuid.New(),
		Severity:  severity,
		Source:    source,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			alert.Context = datatypes.JSON(data)
		}
	}

	logFields := []zap.Field{
		zap.String("alert_id", alert.ID.String()),
		zap.String("severity", string(severity)),
		zap.String("source", source),
		zap.Any("context", fields),
	}
	if severity == model.AlertSeverityCritical {
		s.logger.Error(message, logFields...)
	} else {
		s.logger.Warn(message, logFields...)
	}

	// Sinks must still run when the caller's context is already done.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.repo.Create(sinkCtx, alert); err != nil {
		s.logger.Error("Failed to persist alert",
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err))
	}

	if severity != model.AlertSeverityCritical || s.channel == "" {
		return
	}
	msg := alertMessage{
		ID:        alert.ID,
		Severity:  severity,
		Source:    source,
		Message:   message,
		Context:   fields,
		CreatedAt: alert.CreatedAt,
	}
	if err := s.publisher.Publish(sinkCtx, s.channel, msg); err != nil {
		s.logger.Error("Failed to publish alert",
			zap.String("alert_id", alert.ID.String()),
			zap.String("channel", s.channel),
			zap.Error(err))
	}
}
