package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a verified processor event.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Object is the raw data.object of the event.
	Object json.RawMessage
	// Account is set for events from connected accounts.
	Account string
	Raw     []byte
}

// SignatureVerifier authenticates inbound webhook payloads.
type SignatureVerifier interface {
	// VerifyEvent checks signature over payload and decodes the event. It
	// fails closed when no secret is configured.
	VerifyEvent(payload []byte, signature string) (*Event, error)
}

// PaymentIntentResult is the processor view of a payment intent after a call.
type PaymentIntentResult struct {
	ID     string
	Status string
	// AlreadyDone is true when the call was a no-op because the intent had
	// already reached the requested state.
	AlreadyDone bool
}

// TransferRequest moves funds from the platform to a connected account.
type TransferRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Destination    string
	IdempotencyKey string
	Metadata       map[string]string
}

// PayoutRequest pays out a connected account balance to its bank.
type PayoutRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Account        string
	IdempotencyKey string
	Metadata       map[string]string
}

// PaymentProcessor is the subset of the processor API the pipeline calls.
// Every method takes an idempotency key so retried HTTP calls cannot repeat
// side effects.
type PaymentProcessor interface {
	CapturePaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*PaymentIntentResult, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*PaymentIntentResult, error)
	RefundPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error)
	CreateTransfer(ctx context.Context, req *TransferRequest) (string, error)
	CreatePayout(ctx context.Context, req *PayoutRequest) (string, error)
}
