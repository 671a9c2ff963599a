package usecase

import (
	"context"
	"fmt"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

// EventLog answers whether a recorded event may be processed now.
type EventLog struct {
	events domainRepo.EventRepository
}

// NewEventLog creates a new event log
func NewEventLog(events domainRepo.EventRepository) *EventLog {
	return &EventLog{events: events}
}

// CanProcess reports whether eventID is unprocessed and its dependency, if
// any, has been processed. A dependency missing from the log counts as
// satisfied. When false, blockedBy names the pending dependency.
func (l *EventLog) CanProcess(ctx context.Context, eventID string) (ok bool, blockedBy string, err error) {
	event, err := l.events.GetByEventID(ctx, eventID)
	if err != nil {
		return false, "", fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if event == nil {
		return false, "", domainErrors.NotFound("event", eventID)
	}
	if event.Processed {
		return false, "", nil
	}
	if event.DependsOnEvent == nil || *event.DependsOnEvent == "" {
		return true, "", nil
	}

	dep, err := l.events.GetByEventID(ctx, *event.DependsOnEvent)
	if err != nil {
		return false, "", fmt.Errorf("failed to load dependency %s: %w", *event.DependsOnEvent, err)
	}
	if dep == nil || dep.Processed {
		return true, "", nil
	}
	return false, dep.EventID, nil
}
