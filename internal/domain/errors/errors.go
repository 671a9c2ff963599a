// Package errors holds the coded domain errors of the escrow pipeline.
package errors

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// InvalidSignature rejects an inbound event that failed verification or
// arrived while no signing secret is configured.
func InvalidSignature(cause error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInvalidSignature, "invalid webhook signature", cause)
}

// InvalidStateTransition reports a rejected order transition.
func InvalidStateTransition(current, requested string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInvalidStateTransition,
		fmt.Sprintf("cannot transition order from %s to %s", current, requested), nil).
		WithDetail("current_status", current).
		WithDetail("requested_status", requested)
}

// InsufficientFunds reports a withdrawal larger than the available balance.
func InsufficientFunds(requested, available decimal.Decimal) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInsufficientFunds,
		fmt.Sprintf("insufficient available balance: requested %s, available %s", requested.StringFixed(2), available.StringFixed(2)), nil).
		WithDetail("requested", requested.StringFixed(2)).
		WithDetail("available", available.StringFixed(2))
}

// UnknownJobType fails a job whose type has no handler.
func UnknownJobType(jobType string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrUnknownJobType,
		fmt.Sprintf("unknown job type %q", jobType), nil)
}

// DependencyUnresolved defers an event until its prerequisite is processed.
func DependencyUnresolved(eventID, dependsOn string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrDependencyUnresolved,
		fmt.Sprintf("event %s waits for %s", eventID, dependsOn), nil).
		WithDetail("depends_on_event", dependsOn)
}

// ExternalCallFailed wraps a payment processor failure.
func ExternalCallFailed(operation string, cause error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrExternalCallFailed,
		fmt.Sprintf("payment processor call %s failed", operation), cause).
		WithDetail("operation", operation)
}

// LedgerImbalance reports a transaction group whose debits and credits differ.
func LedgerImbalance(groupID string, debits, credits decimal.Decimal) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrLedgerImbalance,
		fmt.Sprintf("ledger group %s unbalanced: debits %s, credits %s", groupID, debits.StringFixed(2), credits.StringFixed(2)), nil).
		WithDetail("transaction_group_id", groupID).
		WithDetail("debits", debits.StringFixed(2)).
		WithDetail("credits", credits.StringFixed(2))
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", entity, id), nil)
}

// Forbidden reports an actor not allowed to perform an action.
func Forbidden(message string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrUnauthorized, message, nil)
}

// InvalidArgument reports a rejected input.
func InvalidArgument(message string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, message, nil)
}
