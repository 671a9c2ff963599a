package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type eventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewEventRepository creates the replay table and event log repository
func NewEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.EventRepository {
	return &eventRepository{
		db:     db,
		logger: logger,
	}
}

const insertReplaySQL = `INSERT INTO processed_webhooks (event_id, event_type, payload_hash, created_at)
VALUES (?, ?, ?, NOW())
ON CONFLICT (event_id) DO NOTHING`

// Ingest stores a new event and its process-webhook job atomically
func (r *eventRepository) Ingest(ctx context.Context, req *domainRepo.IngestRequest) (bool, error) {
	isNew := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(insertReplaySQL, req.Replay.EventID, req.Replay.EventType, req.Replay.PayloadHash)
		if res.Error != nil {
			return fmt.Errorf("failed to record replay entry: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if len(req.DependsOnTypes) > 0 && req.Event.ResourceID != "" {
			var deps []model.WebhookEvent
			err := tx.Where("resource_id = ? AND event_type IN ? AND processed = ? AND event_id <> ?",
				req.Event.ResourceID, req.DependsOnTypes, false, req.Event.EventID).
				Order("event_created DESC, id DESC").
				Limit(1).
				Find(&deps).Error
			if err != nil {
				return fmt.Errorf("failed to look up dependency: %w", err)
			}
			if len(deps) > 0 {
				dependsOn := deps[0].EventID
				req.Event.DependsOnEvent = &dependsOn
			}
		}

		// The event log outlives the replay table, so an old event may come
		// back after its replay row was pruned.
		res = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
			Create(req.Event)
		if res.Error != nil {
			return fmt.Errorf("failed to insert webhook event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(req.Job).Error; err != nil {
			return fmt.Errorf("failed to enqueue webhook job: %w", err)
		}

		isNew = true
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to ingest webhook event",
			zap.String("event_id", req.Event.EventID),
			zap.String("event_type", req.Event.EventType),
			zap.Error(err))
		return false, err
	}

	if isNew {
		fields := []zap.Field{
			zap.String("event_id", req.Event.EventID),
			zap.String("event_type", req.Event.EventType),
			zap.String("job_id", req.Job.ID.String()),
		}
		if req.Event.DependsOnEvent != nil {
			fields = append(fields, zap.String("depends_on_event", *req.Event.DependsOnEvent))
		}
		r.logger.Info("Webhook event ingested", fields...)
	}

	return isNew, nil
}

// GetByEventID retrieves an event by processor id
func (r *eventRepository) GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent

	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed marks an event processed. Repeated calls are no-ops.
func (r *eventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ? AND processed = ?", eventID, false).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": &now,
			"error":        nil,
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event processed: %w", result.Error)
	}

	return nil
}

// RecordFailure stores the last processing error and bumps retry_count
func (r *eventRepository) RecordFailure(ctx context.Context, eventID string, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"error":       reason,
			"retry_count": gorm.Expr("retry_count + 1"),
		})
	if result.Error != nil {
		r.logger.Error("Failed to record webhook event failure",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to record webhook event failure: %w", result.Error)
	}

	return nil
}

// DeleteReplaysBefore prunes old replay rows
func (r *eventRepository) DeleteReplaysBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.ProcessedWebhook{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune replay table: %w", result.Error)
	}
	return result.RowsAffected, nil
}
