package usecase

import (
	"context"

	"github.com/google/uuid"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// WebhookJobHandler executes process-webhook jobs.
type WebhookJobHandler interface {
	ProcessWebhook(ctx context.Context, eventID string) error
}

// CommissionJobHandler executes ledger jobs.
type CommissionJobHandler interface {
	Distribute(ctx context.Context, orderID uuid.UUID) error
	Reverse(ctx context.Context, orderID uuid.UUID, reason string) error
}

// MaintenanceJobHandler executes notification, analytics and housekeeping jobs.
type MaintenanceJobHandler interface {
	SendNotification(ctx context.Context, jobID uuid.UUID, p model.SendNotificationPayload) error
	SyncAnalytics(ctx context.Context, sellerID uuid.UUID) error
	Cleanup(ctx context.Context, retentionDays int) error
	ReleaseRevenues(ctx context.Context) error
}

// JobDispatcher routes a claimed job to its handler.
type JobDispatcher struct {
	webhooks    WebhookJobHandler
	commissions CommissionJobHandler
	maintenance MaintenanceJobHandler
}

// NewJobDispatcher creates the dispatcher
func NewJobDispatcher(webhooks WebhookJobHandler, commissions CommissionJobHandler, maintenance MaintenanceJobHandler) *JobDispatcher {
	return &JobDispatcher{
		webhooks:    webhooks,
		commissions: commissions,
		maintenance: maintenance,
	}
}

// decode fails the job permanently when its payload is unreadable, since
// a retry would read the same bytes.
func decode(job *model.Job, dst interface{}) error {
	if err := job.DecodePayload(dst); err != nil {
		return apperrors.MarkPermanent(domainErrors.InvalidArgument(err.Error()))
	}
	return nil
}

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperrors.MarkPermanent(domainErrors.InvalidArgument(field + " is required"))
	}
	return nil
}

// Dispatch runs job. Adding a job type without a case here fails the job
// with UNKNOWN_JOB_TYPE.
func (d *JobDispatcher) Dispatch(ctx context.Context, job *model.Job) error {
	switch job.JobType {
	case model.JobTypeProcessWebhook:
		var p model.ProcessWebhookPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		if p.EventID == "" {
			return apperrors.MarkPermanent(domainErrors.InvalidArgument("event_id is required"))
		}
		return d.webhooks.ProcessWebhook(ctx, p.EventID)

	case model.JobTypeDistributeCommissions:
		var p model.DistributeCommissionsPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		if err := requireID("order_id", p.OrderID); err != nil {
			return err
		}
		return d.commissions.Distribute(ctx, p.OrderID)

	case model.JobTypeReverseCommissions:
		var p model.ReverseCommissionsPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		if err := requireID("order_id", p.OrderID); err != nil {
			return err
		}
		return d.commissions.Reverse(ctx, p.OrderID, p.Reason)

	case model.JobTypeSendNotification:
		var p model.SendNotificationPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		if err := requireID("user_id", p.UserID); err != nil {
			return err
		}
		return d.maintenance.SendNotification(ctx, job.ID, p)

	case model.JobTypeSyncAnalytics:
		var p model.SyncAnalyticsPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		if err := requireID("seller_id", p.SellerID); err != nil {
			return err
		}
		return d.maintenance.SyncAnalytics(ctx, p.SellerID)

	case model.JobTypeCleanupData:
		var p model.CleanupDataPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		return d.maintenance.Cleanup(ctx, p.RetentionDays)

	case model.JobTypeReleaseRevenues:
		return d.maintenance.ReleaseRevenues(ctx)

	default:
		return apperrors.MarkPermanent(domainErrors.UnknownJobType(string(job.JobType)))
	}
}
