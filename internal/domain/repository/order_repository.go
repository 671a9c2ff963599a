package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// OrderUpdate lists the non-status fields a transition may also set.
type OrderUpdate struct {
	PaymentStatus      *model.PaymentStatus
	CancellationReason *string
}

// OrderRepository persists orders. Status only changes through Transition,
// which is conditional on the status the caller validated against.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error)

	// Transition moves the order from -> to, applies update and enqueues jobs
	// in one transaction. It fails with INVALID_STATE_TRANSITION when the
	// stored status is no longer from.
	Transition(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus, update OrderUpdate, jobs ...*model.Job) (*model.Order, error)

	// UpdatePayment changes payment fields while the order stays in status.
	UpdatePayment(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, update OrderUpdate) (*model.Order, error)

	ListDeliveredBefore(ctx context.Context, before time.Time, limit int) ([]*model.Order, error)
}
