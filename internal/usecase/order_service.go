package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

const autoCompleteBatch = 100

// OrderService drives the order state machine for user actions and payment
// events. Every status change goes through model.ValidateTransition and a
// conditional repository transition.
type OrderService struct {
	orders    domainRepo.OrderRepository
	processor provider.PaymentProcessor
	alerts    Alerter
	jobs      jobFactory
	cfg       config.OrderConfig
	logger    *zap.Logger
}

// NewOrderService creates a new order service instance
func NewOrderService(
	orders domainRepo.OrderRepository,
	processor provider.PaymentProcessor,
	alerts Alerter,
	cfg config.OrderConfig,
	maxAttempts int,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		processor: processor,
		alerts:    alerts,
		jobs:      newJobFactory(maxAttempts),
		cfg:       cfg,
		logger:    logger,
	}
}

func captureKey(orderID uuid.UUID) string { return "order_" + orderID.String() + "_capture" }
func cancelKey(orderID uuid.UUID) string  { return "order_" + orderID.String() + "_cancel" }
func refundKey(orderID uuid.UUID) string  { return "order_" + orderID.String() + "_refund" }

// jobList collects jobs and keeps the first build error.
type jobList struct {
	jobs []*model.Job
	err  error
}

func (l *jobList) add(job *model.Job, err error) {
	if err != nil {
		if l.err == nil {
			l.err = err
		}
		return
	}
	l.jobs = append(l.jobs, job)
}

func (s *OrderService) notify(l *jobList, userID uuid.UUID, kind, title string, order *model.Order) {
	l.add(s.jobs.notification(model.SendNotificationPayload{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: fmt.Sprintf("Order %s is now %s", order.ID, order.Status),
		Data:    map[string]string{"order_id": order.ID.String()},
	}))
}

func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.NotFound("order", orderID.String())
	}
	return order, nil
}

func actorFor(order *model.Order, userID uuid.UUID) (model.Actor, error) {
	switch userID {
	case order.BuyerID:
		return model.ActorBuyer, nil
	case order.SellerID:
		return model.ActorSeller, nil
	}
	return "", domainErrors.Forbidden("user is not a party to this order")
}

func (s *OrderService) transition(ctx context.Context, order *model.Order, to model.OrderStatus, actor model.Actor, update domainRepo.OrderUpdate, jobs *jobList) (*model.Order, error) {
	if err := model.ValidateTransition(order, to, actor); err != nil {
		return nil, err
	}
	var pending []*model.Job
	if jobs != nil {
		if jobs.err != nil {
			return nil, fmt.Errorf("failed to build order jobs: %w", jobs.err)
		}
		pending = jobs.jobs
	}
	return s.orders.Transition(ctx, order.ID, order.Status, to, update, pending...)
}

// Accept captures the held payment and moves the order to accepted. Only the
// seller may accept. A capture already done at the processor counts as done.
func (s *OrderService) Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := actorFor(order, sellerID)
	if err != nil {
		return nil, err
	}
	if actor != model.ActorSeller {
		return nil, domainErrors.Forbidden("only the seller can accept an order")
	}
	if order.Status != model.OrderStatusPaymentAuthorized {
		return nil, domainErrors.InvalidStateTransition(string(order.Status), string(model.OrderStatusAccepted))
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil, domainErrors.InvalidStateTransition(string(order.Status), string(model.OrderStatusAccepted)).
			WithDetail("reason", "payment intent missing")
	}

	if !order.PaymentStatus.IsCaptured() {
		res, err := s.processor.CapturePaymentIntent(ctx, *order.PaymentIntentID, captureKey(order.ID))
		if err != nil {
			apperrors.LogError(s.logger, err, "Failed to capture payment",
				zap.String("order_id", order.ID.String()))
			return nil, err
		}
		captured := model.PaymentStatusCaptured
		if res.Status == string(model.PaymentStatusSucceeded) {
			captured = model.PaymentStatusSucceeded
		}
		order, err = s.orders.UpdatePayment(ctx, order.ID, order.Status, domainRepo.OrderUpdate{PaymentStatus: &captured})
		if err != nil {
			return nil, err
		}
		s.logger.Info("Payment captured",
			zap.String("order_id", order.ID.String()),
			zap.Bool("already_captured", res.AlreadyDone))
	}

	jobs := &jobList{}
	s.notify(jobs, order.BuyerID, "order_accepted", "Your order was accepted", order)
	return s.transition(ctx, order, model.OrderStatusAccepted, model.ActorSeller, domainRepo.OrderUpdate{}, jobs)
}

// Start moves an accepted or revision-requested order to in_progress.
func (s *OrderService) Start(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	return s.act(ctx, orderID, sellerID, model.OrderStatusInProgress, func(l *jobList, o *model.Order) {
		s.notify(l, o.BuyerID, "order_started", "Work on your order has started", o)
	})
}

// Deliver marks the work delivered and notifies the buyer.
func (s *OrderService) Deliver(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	return s.act(ctx, orderID, sellerID, model.OrderStatusDelivered, func(l *jobList, o *model.Order) {
		s.notify(l, o.BuyerID, "order_delivered", "Your order was delivered", o)
	})
}

// RequestRevision sends a delivered order back to the seller.
func (s *OrderService) RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error) {
	return s.act(ctx, orderID, buyerID, model.OrderStatusRevisionRequested, func(l *jobList, o *model.Order) {
		s.notify(l, o.SellerID, "revision_requested", "The buyer requested a revision", o)
	})
}

// Complete is the buyer's confirmation of a delivered order.
func (s *OrderService) Complete(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := actorFor(order, buyerID)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, order, actor)
}

func (s *OrderService) complete(ctx context.Context, order *model.Order, actor model.Actor) (*model.Order, error) {
	jobs := &jobList{}
	jobs.add(s.jobs.job(model.JobTypeDistributeCommissions,
		model.DistributeCommissionsPayload{OrderID: order.ID},
		model.PriorityDistributeCommissions))
	s.notify(jobs, order.SellerID, "order_completed", "Your order was completed", order)
	return s.transition(ctx, order, model.OrderStatusCompleted, actor, domainRepo.OrderUpdate{}, jobs)
}

func (s *OrderService) act(ctx context.Context, orderID, userID uuid.UUID, to model.OrderStatus, notify func(*jobList, *model.Order)) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := actorFor(order, userID)
	if err != nil {
		return nil, err
	}
	jobs := &jobList{}
	notify(jobs, order)
	return s.transition(ctx, order, to, actor, domainRepo.OrderUpdate{}, jobs)
}

// Cancel cancels an order that has not started and releases the payment. A
// processor failure is alerted but does not block the cancellation.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uuid.UUID, reason string) (*model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := actorFor(order, userID)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateTransition(order, model.OrderStatusCancelled, actor); err != nil {
		return nil, err
	}

	update := domainRepo.OrderUpdate{CancellationReason: &reason}
	update.PaymentStatus = s.releasePayment(ctx, order)

	jobs := &jobList{}
	counterparty := order.SellerID
	if actor == model.ActorSeller {
		counterparty = order.BuyerID
	}
	s.notify(jobs, counterparty, "order_cancelled", "An order was cancelled", order)
	cancelled, err := s.transition(ctx, order, model.OrderStatusCancelled, actor, update, jobs)
	if err != nil && update.PaymentStatus != nil {
		// The processor already released the funds but the order moved on.
		apperrors.LogError(s.logger, err, "Order cancel lost after payment release",
			zap.String("order_id", order.ID.String()))
		s.alerts.Raise(ctx, model.AlertSeverityCritical, "order_service",
			"payment released but order not cancelled", map[string]interface{}{
				"order_id":          order.ID.String(),
				"payment_intent_id": *order.PaymentIntentID,
				"payment_status":    string(*update.PaymentStatus),
				"error":             err.Error(),
			})
	}
	return cancelled, err
}

// releasePayment refunds a captured payment or cancels an uncaptured one.
// It returns the new payment status, or nil when nothing changed.
func (s *OrderService) releasePayment(ctx context.Context, order *model.Order) *model.PaymentStatus {
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil
	}
	piID := *order.PaymentIntentID

	switch {
	case order.PaymentStatus == model.PaymentStatusRefunded || order.PaymentStatus == model.PaymentStatusCanceled:
		return nil
	case order.PaymentStatus.IsCaptured():
		if _, err := s.processor.RefundPaymentIntent(ctx, piID, refundKey(order.ID)); err != nil {
			s.paymentReleaseFailed(ctx, order, "refund", err)
			return nil
		}
		refunded := model.PaymentStatusRefunded
		return &refunded
	default:
		if _, err := s.processor.CancelPaymentIntent(ctx, piID, cancelKey(order.ID)); err != nil {
			s.paymentReleaseFailed(ctx, order, "cancel", err)
			return nil
		}
		canceled := model.PaymentStatusCanceled
		return &canceled
	}
}

func (s *OrderService) paymentReleaseFailed(ctx context.Context, order *model.Order, op string, err error) {
	apperrors.LogError(s.logger, err, "Failed to release payment for cancelled order",
		zap.String("order_id", order.ID.String()),
		zap.String("operation", op))
	s.alerts.Raise(ctx, model.AlertSeverityWarning, "order_service",
		"payment release failed for cancelled order", map[string]interface{}{
			"order_id":          order.ID.String(),
			"payment_intent_id": *order.PaymentIntentID,
			"operation":         op,
			"error":             err.Error(),
		})
}

// AutoCompleteDelivered completes delivered orders whose buyer confirmation
// window has passed. It returns how many orders were completed.
func (s *OrderService) AutoCompleteDelivered(ctx context.Context) (int, error) {
	before := time.Now().Add(-s.cfg.AutoCompleteAfter)
	orders, err := s.orders.ListDeliveredBefore(ctx, before, autoCompleteBatch)
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error
	for _, order := range orders {
		if _, err := s.complete(ctx, order, model.ActorSystem); err != nil {
			if apperrors.HasCode(err, apperrors.ErrInvalidStateTransition) {
				continue
			}
			apperrors.LogError(s.logger, err, "Failed to auto-complete order",
				zap.String("order_id", order.ID.String()))
			errs = append(errs, err)
			continue
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("Auto-completed delivered orders", zap.Int("count", completed))
	}
	return completed, apperrors.Join(errs...)
}

func (s *OrderService) byIntent(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	order, err := s.orders.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.logger.Info("No order for payment intent", zap.String("payment_intent_id", paymentIntentID))
	}
	return order, nil
}

// HandlePaymentAuthorized records a manual-capture authorization
func (s *OrderService) HandlePaymentAuthorized(ctx context.Context, paymentIntentID string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}
	if order.Status != model.OrderStatusPending {
		s.logger.Info("Authorization for order past pending",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)))
		return nil
	}

	authorized := model.PaymentStatusAuthorized
	jobs := &jobList{}
	s.notify(jobs, order.SellerID, "order_received", "You received a new order", order)
	_, err = s.transition(ctx, order, model.OrderStatusPaymentAuthorized, model.ActorSystem,
		domainRepo.OrderUpdate{PaymentStatus: &authorized}, jobs)
	return err
}

// HandlePaymentCaptured records a successful capture
func (s *OrderService) HandlePaymentCaptured(ctx context.Context, paymentIntentID string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}

	succeeded := model.PaymentStatusSucceeded
	switch {
	case order.PaymentStatus == model.PaymentStatusSucceeded:
		return nil
	case order.Status == model.OrderStatusPending:
		// Captured without an observed authorization.
		jobs := &jobList{}
		s.notify(jobs, order.SellerID, "order_received", "You received a new order", order)
		_, err = s.transition(ctx, order, model.OrderStatusPaymentAuthorized, model.ActorSystem,
			domainRepo.OrderUpdate{PaymentStatus: &succeeded}, jobs)
		return err
	case order.Status == model.OrderStatusCancelled || order.Status == model.OrderStatusRefunded:
		s.alerts.Raise(ctx, model.AlertSeverityWarning, "order_service",
			"payment captured on a closed order", map[string]interface{}{
				"order_id":          order.ID.String(),
				"status":            string(order.Status),
				"payment_intent_id": paymentIntentID,
			})
		return nil
	default:
		_, err = s.orders.UpdatePayment(ctx, order.ID, order.Status, domainRepo.OrderUpdate{PaymentStatus: &succeeded})
		return err
	}
}

// HandlePaymentFailed records a failed payment attempt on an unpaid order
func (s *OrderService) HandlePaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}
	if order.PaymentStatus.IsCaptured() ||
		(order.Status != model.OrderStatusPending && order.Status != model.OrderStatusPaymentAuthorized) {
		return nil
	}

	failed := model.PaymentStatusFailed
	if _, err := s.orders.UpdatePayment(ctx, order.ID, order.Status, domainRepo.OrderUpdate{PaymentStatus: &failed}); err != nil {
		return err
	}
	s.logger.Info("Payment failed",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", reason))
	return nil
}

// HandlePaymentCanceled cancels the order when the processor voided the intent
func (s *OrderService) HandlePaymentCanceled(ctx context.Context, paymentIntentID string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}

	canceled := model.PaymentStatusCanceled
	switch {
	case order.Status == model.OrderStatusCancelled:
		if order.PaymentStatus == canceled {
			return nil
		}
		_, err = s.orders.UpdatePayment(ctx, order.ID, order.Status, domainRepo.OrderUpdate{PaymentStatus: &canceled})
		return err
	case model.IsCancellable(order.Status) && !order.PaymentStatus.IsCaptured():
		reason := "payment canceled by processor"
		jobs := &jobList{}
		s.notify(jobs, order.BuyerID, "order_cancelled", "Your order was cancelled", order)
		_, err = s.transition(ctx, order, model.OrderStatusCancelled, model.ActorSystem,
			domainRepo.OrderUpdate{PaymentStatus: &canceled, CancellationReason: &reason}, jobs)
		return err
	default:
		s.logger.Warn("Ignoring payment cancellation",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)))
		return nil
	}
}

// HandleRefund applies a processor refund. Completed and disputed orders
// become refunded with a commission reversal enqueued in the same
// transaction. Orders still in fulfilment keep their status and raise an
// alert.
func (s *OrderService) HandleRefund(ctx context.Context, paymentIntentID string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}

	refunded := model.PaymentStatusRefunded
	update := domainRepo.OrderUpdate{PaymentStatus: &refunded}

	switch {
	case order.Status == model.OrderStatusRefunded:
		return nil
	case order.Status == model.OrderStatusCompleted || order.Status == model.OrderStatusDisputed:
		jobs := &jobList{}
		jobs.add(s.jobs.job(model.JobTypeReverseCommissions,
			model.ReverseCommissionsPayload{OrderID: order.ID, Reason: "refund"},
			model.PriorityReverseCommissions))
		s.notify(jobs, order.BuyerID, "order_refunded", "Your order was refunded", order)
		_, err = s.transition(ctx, order, model.OrderStatusRefunded, model.ActorSystem, update, jobs)
		return err
	case order.Status == model.OrderStatusCancelled:
		if order.PaymentStatus == refunded {
			return nil
		}
		_, err = s.orders.UpdatePayment(ctx, order.ID, order.Status, update)
		return err
	case model.IsCancellable(order.Status):
		reason := "payment refunded"
		update.CancellationReason = &reason
		jobs := &jobList{}
		s.notify(jobs, order.BuyerID, "order_refunded", "Your order was refunded", order)
		_, err = s.transition(ctx, order, model.OrderStatusCancelled, model.ActorSystem, update, jobs)
		return err
	default:
		if order.PaymentStatus == refunded {
			return nil
		}
		if _, err := s.orders.UpdatePayment(ctx, order.ID, order.Status, update); err != nil {
			return err
		}
		s.alerts.Raise(ctx, model.AlertSeverityWarning, "order_service",
			"refund received for order in fulfilment", map[string]interface{}{
				"order_id":          order.ID.String(),
				"status":            string(order.Status),
				"payment_intent_id": paymentIntentID,
			})
		return nil
	}
}

// HandleDispute freezes the order in disputed
func (s *OrderService) HandleDispute(ctx context.Context, paymentIntentID string) error {
	order, err := s.byIntent(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}
	if order.Status == model.OrderStatusDisputed {
		return nil
	}

	jobs := &jobList{}
	s.notify(jobs, order.BuyerID, "order_disputed", "A dispute was opened on your order", order)
	s.notify(jobs, order.SellerID, "order_disputed", "A dispute was opened on your order", order)
	if _, err := s.transition(ctx, order, model.OrderStatusDisputed, model.ActorSystem, domainRepo.OrderUpdate{}, jobs); err != nil {
		return err
	}

	s.alerts.Raise(ctx, model.AlertSeverityWarning, "order_service", "dispute opened", map[string]interface{}{
		"order_id":          order.ID.String(),
		"previous_status":   string(order.Status),
		"payment_intent_id": paymentIntentID,
	})
	return nil
}
