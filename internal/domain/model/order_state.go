package model

import (
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
)

// Actor is whoever requests an order transition.
type Actor string

const (
	ActorBuyer  Actor = "buyer"
	ActorSeller Actor = "seller"
	ActorSystem Actor = "system"
)

// orderTransitions lists, per source status, the reachable statuses and the
// actors allowed to request each move. Disputed orders only accept system
// transitions.
var orderTransitions = map[OrderStatus]map[OrderStatus][]Actor{
	OrderStatusPending: {
		OrderStatusPaymentAuthorized: {ActorSystem},
		OrderStatusCancelled:         {ActorBuyer, ActorSystem},
		OrderStatusDisputed:          {ActorSystem},
	},
	OrderStatusPaymentAuthorized: {
		OrderStatusAccepted:  {ActorSeller},
		OrderStatusCancelled: {ActorBuyer, ActorSeller, ActorSystem},
		OrderStatusDisputed:  {ActorSystem},
	},
	OrderStatusAccepted: {
		OrderStatusInProgress: {ActorSeller},
		OrderStatusCancelled:  {ActorBuyer, ActorSeller, ActorSystem},
		OrderStatusDisputed:   {ActorSystem},
	},
	OrderStatusInProgress: {
		OrderStatusDelivered: {ActorSeller},
		OrderStatusDisputed:  {ActorSystem},
	},
	OrderStatusDelivered: {
		OrderStatusCompleted:         {ActorBuyer, ActorSystem},
		OrderStatusRevisionRequested: {ActorBuyer},
		OrderStatusDisputed:          {ActorSystem},
	},
	OrderStatusRevisionRequested: {
		OrderStatusInProgress: {ActorSeller},
		OrderStatusDisputed:   {ActorSystem},
	},
	OrderStatusCompleted: {
		OrderStatusRefunded: {ActorSystem},
		OrderStatusDisputed: {ActorSystem},
	},
	OrderStatusDisputed: {
		OrderStatusRefunded: {ActorSystem},
	},
	OrderStatusCancelled: {
		OrderStatusDisputed: {ActorSystem},
	},
	OrderStatusRefunded: {
		OrderStatusDisputed: {ActorSystem},
	},
}

// CanTransition reports whether from -> to is in the table, ignoring actors.
func CanTransition(from, to OrderStatus) bool {
	_, ok := orderTransitions[from][to]
	return ok
}

// ValidateTransition checks from -> to for actor and the payment
// preconditions that gate acceptance and completion. It returns an
// INVALID_STATE_TRANSITION error when the move is not allowed, or an
// UNAUTHORIZED error when the move exists but actor may not request it.
func ValidateTransition(order *Order, to OrderStatus, actor Actor) error {
	actors, ok := orderTransitions[order.Status][to]
	if !ok {
		return domainErrors.InvalidStateTransition(string(order.Status), string(to))
	}

	allowed := false
	for _, a := range actors {
		if a == actor {
			allowed = true
			break
		}
	}
	if !allowed {
		return domainErrors.Forbidden("actor " + string(actor) + " may not move order to " + string(to))
	}

	switch to {
	case OrderStatusPaymentAuthorized:
		if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
			return domainErrors.InvalidStateTransition(string(order.Status), string(to)).
				WithDetail("reason", "payment intent missing")
		}
	case OrderStatusAccepted, OrderStatusCompleted:
		if !order.PaymentStatus.IsCaptured() {
			return domainErrors.InvalidStateTransition(string(order.Status), string(to)).
				WithDetail("reason", "payment not captured").
				WithDetail("payment_status", string(order.PaymentStatus))
		}
	}
	return nil
}

// IsCancellable reports whether the order may still be cancelled.
func IsCancellable(status OrderStatus) bool {
	return CanTransition(status, OrderStatusCancelled)
}
