package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// AlertRepository persists alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *model.Alert) error
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	// Create returns false when a notification for the same job exists.
	Create(ctx context.Context, n *model.Notification) (bool, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// AnalyticsRepository maintains seller aggregates.
type AnalyticsRepository interface {
	RefreshSellerStats(ctx context.Context, sellerID uuid.UUID) (*model.SellerStats, error)
}
