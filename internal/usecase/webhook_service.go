package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// ReceiveResult is the outcome of accepting a webhook delivery.
type ReceiveResult struct {
	EventID   string
	EventType string
	Duplicate bool
}

// WebhookService verifies inbound processor events and records them with
// their process-webhook job.
type WebhookService struct {
	verifier provider.SignatureVerifier
	events   domainRepo.EventRepository
	jobs     jobFactory
	logger   *zap.Logger
}

// NewWebhookService creates a new webhook service instance
func NewWebhookService(verifier provider.SignatureVerifier, events domainRepo.EventRepository, maxAttempts int, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		events:   events,
		jobs:     newJobFactory(maxAttempts),
		logger:   logger,
	}
}

// Receive verifies payload and ingests it. A replayed event is reported as
// Duplicate and is not an error.
func (s *WebhookService) Receive(ctx context.Context, payload []byte, signature string) (*ReceiveResult, error) {
	event, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return nil, err
	}

	obj, err := decodeEventObject(event.Object)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, "malformed event object", err)
	}
	resourceType, resourceID := resourceOf(event.Type, obj)

	hash := sha256.Sum256(payload)
	priority := EventPriority(event.Type)

	job, err := s.jobs.job(model.JobTypeProcessWebhook, model.ProcessWebhookPayload{EventID: event.ID}, priority)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook job: %w", err)
	}

	objectJSON := datatypes.JSON(event.Object)
	if len(objectJSON) == 0 {
		objectJSON = datatypes.JSON("{}")
	}

	req := &domainRepo.IngestRequest{
		Replay: &model.ProcessedWebhook{
			EventID:     event.ID,
			EventType:   event.Type,
			PayloadHash: hex.EncodeToString(hash[:]),
		},
		Event: &model.WebhookEvent{
			EventID:      event.ID,
			EventType:    event.Type,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			EventCreated: event.Created,
			Priority:     priority,
			Payload:      objectJSON,
		},
		DependsOnTypes: EventDependencies(event.Type),
		Job:            job,
	}

	isNew, err := s.events.Ingest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest event %s: %w", event.ID, err)
	}

	result := &ReceiveResult{EventID: event.ID, EventType: event.Type, Duplicate: !isNew}
	if !isNew {
		s.logger.Info("Duplicate webhook ignored",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
	}
	return result, nil
}
