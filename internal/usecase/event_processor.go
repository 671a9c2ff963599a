package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// OrderEventHandler applies payment lifecycle events to orders.
type OrderEventHandler interface {
	HandlePaymentAuthorized(ctx context.Context, paymentIntentID string) error
	HandlePaymentCaptured(ctx context.Context, paymentIntentID string) error
	HandlePaymentFailed(ctx context.Context, paymentIntentID, reason string) error
	HandlePaymentCanceled(ctx context.Context, paymentIntentID string) error
	HandleRefund(ctx context.Context, paymentIntentID string) error
	HandleDispute(ctx context.Context, paymentIntentID string) error
}

// PayoutEventHandler applies payout settlement events to withdrawals.
type PayoutEventHandler interface {
	HandlePayoutPaid(ctx context.Context, payoutID, withdrawalID string) error
	HandlePayoutFailed(ctx context.Context, payoutID, withdrawalID, reason string) error
}

// EventProcessor executes process-webhook jobs.
type EventProcessor struct {
	log      *EventLog
	events   domainRepo.EventRepository
	orders   OrderEventHandler
	payouts  PayoutEventHandler
	accounts domainRepo.PayoutAccountRepository
	logger   *zap.Logger
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(
	events domainRepo.EventRepository,
	orders OrderEventHandler,
	payouts PayoutEventHandler,
	accounts domainRepo.PayoutAccountRepository,
	logger *zap.Logger,
) *EventProcessor {
	return &EventProcessor{
		log:      NewEventLog(events),
		events:   events,
		orders:   orders,
		payouts:  payouts,
		accounts: accounts,
		logger:   logger,
	}
}

// ProcessWebhook applies a recorded event once its dependency is processed.
// It returns DEPENDENCY_UNRESOLVED while the event must wait.
func (p *EventProcessor) ProcessWebhook(ctx context.Context, eventID string) error {
	ok, blockedBy, err := p.log.CanProcess(ctx, eventID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return apperrors.MarkPermanent(err)
		}
		return err
	}
	if !ok {
		if blockedBy == "" {
			p.logger.Debug("Event already processed", zap.String("event_id", eventID))
			return nil
		}
		return domainErrors.DependencyUnresolved(eventID, blockedBy)
	}

	event, err := p.events.GetByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	if err := p.apply(ctx, event); err != nil {
		if recErr := p.events.RecordFailure(ctx, eventID, err.Error()); recErr != nil {
			p.logger.Error("Failed to record event failure",
				zap.String("event_id", eventID),
				zap.Error(recErr))
		}
		return err
	}

	if err := p.events.MarkProcessed(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", eventID, err)
	}

	p.logger.Info("Event processed",
		zap.String("event_id", eventID),
		zap.String("event_type", event.EventType),
		zap.String("resource_id", event.ResourceID))
	return nil
}

func (p *EventProcessor) apply(ctx context.Context, event *model.WebhookEvent) error {
	obj, err := decodeEventObject(event.Payload)
	if err != nil {
		return apperrors.MarkPermanent(fmt.Errorf("malformed payload of event %s: %w", event.EventID, err))
	}

	switch event.EventType {
	case model.EventPaymentAuthorized:
		return p.orders.HandlePaymentAuthorized(ctx, event.ResourceID)
	case model.EventPaymentSucceeded:
		return p.orders.HandlePaymentCaptured(ctx, event.ResourceID)
	case model.EventPaymentFailed:
		return p.orders.HandlePaymentFailed(ctx, event.ResourceID, obj.FailureMessage)
	case model.EventPaymentCanceled:
		return p.orders.HandlePaymentCanceled(ctx, event.ResourceID)
	case model.EventChargeRefunded:
		return p.orders.HandleRefund(ctx, event.ResourceID)
	case model.EventDisputeCreated:
		return p.orders.HandleDispute(ctx, event.ResourceID)
	case model.EventPayoutPaid:
		return p.payouts.HandlePayoutPaid(ctx, obj.ID, obj.Metadata["withdrawal_id"])
	case model.EventPayoutFailed:
		reason := obj.FailureMessage
		if reason == "" {
			reason = obj.FailureCode
		}
		return p.payouts.HandlePayoutFailed(ctx, obj.ID, obj.Metadata["withdrawal_id"], reason)
	case model.EventAccountUpdated:
		found, err := p.accounts.SyncFromProcessor(ctx, obj.ID, obj.PayoutsEnabled)
		if err != nil {
			return err
		}
		if !found {
			p.logger.Info("Account update for unknown connected account",
				zap.String("account_id", obj.ID))
		}
		return nil
	default:
		p.logger.Info("Ignoring unhandled event type",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType))
		return nil
	}
}
