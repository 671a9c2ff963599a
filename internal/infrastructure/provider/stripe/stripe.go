package stripe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// StripeProvider implements the payment processor and signature verifier on
// top of a Stripe API client.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
	logger        *zap.Logger
}

// NewStripeProvider creates a Stripe provider. backends may be nil to use the
// default Stripe endpoints.
func NewStripeProvider(secretKey, webhookSecret string, tolerance time.Duration, backends *stripe.Backends, logger *zap.Logger) *StripeProvider {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeProvider{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
		logger:        logger,
	}
}

// VerifyEvent checks the Stripe signature header over payload and decodes the event
func (s *StripeProvider) VerifyEvent(payload []byte, signature string) (*provider.Event, error) {
	if s.webhookSecret == "" {
		s.logger.Error("Webhook secret not configured, rejecting event")
		return nil, domainErrors.InvalidSignature(errors.New("webhook secret not configured"))
	}
	if signature == "" {
		return nil, domainErrors.InvalidSignature(errors.New("missing signature header"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                s.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, domainErrors.InvalidSignature(err)
	}

	out := &provider.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
		Account: event.Account,
		Raw:     payload,
	}
	if event.Data != nil {
		out.Object = event.Data.Raw
	}
	return out, nil
}

// CapturePaymentIntent captures an authorized intent. Capturing an intent that
// already succeeded is reported as AlreadyDone.
func (s *StripeProvider) CapturePaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := s.api.PaymentIntents.Capture(paymentIntentID, params)
	if err == nil {
		return &provider.PaymentIntentResult{ID: pi.ID, Status: string(pi.Status)}, nil
	}

	if hasCode(err, stripe.ErrorCodePaymentIntentUnexpectedState) {
		if done := s.currentStatus(ctx, paymentIntentID, stripe.PaymentIntentStatusSucceeded); done != nil {
			s.logger.Info("Payment intent already captured",
				zap.String("payment_intent_id", paymentIntentID))
			return done, nil
		}
	}
	return nil, s.wrap("capture_payment_intent", err)
}

// CancelPaymentIntent releases an uncaptured authorization
func (s *StripeProvider) CancelPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := s.api.PaymentIntents.Cancel(paymentIntentID, params)
	if err == nil {
		return &provider.PaymentIntentResult{ID: pi.ID, Status: string(pi.Status)}, nil
	}

	if hasCode(err, stripe.ErrorCodePaymentIntentUnexpectedState) {
		if done := s.currentStatus(ctx, paymentIntentID, stripe.PaymentIntentStatusCanceled); done != nil {
			return done, nil
		}
	}
	return nil, s.wrap("cancel_payment_intent", err)
}

// RefundPaymentIntent refunds a captured intent in full. An already refunded
// charge yields an empty refund id and no error.
func (s *StripeProvider) RefundPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	refund, err := s.api.Refunds.New(params)
	if err != nil {
		if hasCode(err, stripe.ErrorCodeChargeAlreadyRefunded) {
			s.logger.Info("Payment intent already refunded",
				zap.String("payment_intent_id", paymentIntentID))
			return "", nil
		}
		return "", s.wrap("refund_payment_intent", err)
	}
	return refund.ID, nil
}

// CreateTransfer moves platform funds to a connected account
func (s *StripeProvider) CreateTransfer(ctx context.Context, req *provider.TransferRequest) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	transfer, err := s.api.Transfers.New(params)
	if err != nil {
		return "", s.wrap("create_transfer", err)
	}

	s.logger.Info("Transfer created",
		zap.String("transfer_id", transfer.ID),
		zap.String("destination", req.Destination),
		zap.String("amount", req.Amount.String()))
	return transfer.ID, nil
}

// CreatePayout pays out a connected account balance to its bank account
func (s *StripeProvider) CreatePayout(ctx context.Context, req *provider.PayoutRequest) (string, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.SetStripeAccount(req.Account)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	payout, err := s.api.Payouts.New(params)
	if err != nil {
		return "", s.wrap("create_payout", err)
	}

	s.logger.Info("Payout created",
		zap.String("payout_id", payout.ID),
		zap.String("account", req.Account),
		zap.String("amount", req.Amount.String()))
	return payout.ID, nil
}

func (s *StripeProvider) currentStatus(ctx context.Context, paymentIntentID string, want stripe.PaymentIntentStatus) *provider.PaymentIntentResult {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		s.logger.Warn("Failed to fetch payment intent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		return nil
	}
	if pi.Status != want {
		return nil
	}
	return &provider.PaymentIntentResult{ID: pi.ID, Status: string(pi.Status), AlreadyDone: true}
}

// wrap converts a Stripe error into EXTERNAL_CALL_FAILED. Request errors that
// a retry cannot fix are marked permanent.
func (s *StripeProvider) wrap(operation string, err error) error {
	appErr := domainErrors.ExternalCallFailed(operation, err)

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return appErr
	}

	appErr.WithDetail("stripe_code", string(stripeErr.Code)).
		WithDetail("http_status", stripeErr.HTTPStatusCode)
	if stripeErr.RequestID != "" {
		appErr.WithDetail("request_id", stripeErr.RequestID)
	}

	s.logger.Warn("Stripe call failed",
		zap.String("operation", operation),
		zap.String("stripe_code", string(stripeErr.Code)),
		zap.Int("http_status", stripeErr.HTTPStatusCode),
		zap.String("request_id", stripeErr.RequestID))

	switch status := stripeErr.HTTPStatusCode; {
	case status == 409 || status == 429:
		return appErr
	case status >= 400 && status < 500:
		return apperrors.MarkPermanent(appErr)
	default:
		return appErr
	}
}

func hasCode(err error, code stripe.ErrorCode) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == code
}

// toMinorUnits converts a currency amount to cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var (
	_ provider.PaymentProcessor  = (*StripeProvider)(nil)
	_ provider.SignatureVerifier = (*StripeProvider)(nil)
)
