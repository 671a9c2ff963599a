package repository

import (
	"context"
	"time"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// IngestRequest bundles the rows written when an event is accepted.
type IngestRequest struct {
	Replay *model.ProcessedWebhook
	Event  *model.WebhookEvent
	// DependsOnTypes are the event types that must be processed first for
	// the same resource.
	DependsOnTypes []string
	Job            *model.Job
}

// EventRepository stores the replay table and the event log.
type EventRepository interface {
	// Ingest runs the replay check-and-insert, the dependency lookup, the
	// event insert and the job insert in one transaction. It returns false
	// without writing anything else when the event was already seen.
	Ingest(ctx context.Context, req *IngestRequest) (bool, error)

	// GetByEventID returns nil when the event does not exist.
	GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error)

	MarkProcessed(ctx context.Context, eventID string) error
	RecordFailure(ctx context.Context, eventID string, reason string) error

	// DeleteReplaysBefore prunes the replay table. The event log is kept.
	DeleteReplaysBefore(ctx context.Context, before time.Time) (int64, error)
}
