package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/retry"
)

// retryingProcessor retries transient processor failures. Idempotency keys
// are passed through unchanged so a retried call cannot repeat a side effect.
type retryingProcessor struct {
	next   provider.PaymentProcessor
	policy retry.Policy
	logger *zap.Logger
}

// NewRetryingProcessor decorates next with policy
func NewRetryingProcessor(next provider.PaymentProcessor, policy retry.Policy, logger *zap.Logger) provider.PaymentProcessor {
	return &retryingProcessor{next: next, policy: policy, logger: logger}
}

func (r *retryingProcessor) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt > 1 {
			r.logger.Debug("Processor call retry failed",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	})
	if err != nil && attempt > 1 {
		r.logger.Warn("Processor call failed after retries",
			zap.String("operation", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
	return err
}

func (r *retryingProcessor) CapturePaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	var res *provider.PaymentIntentResult
	err := r.do(ctx, "capture_payment_intent", func(ctx context.Context) error {
		var err error
		res, err = r.next.CapturePaymentIntent(ctx, paymentIntentID, idempotencyKey)
		return err
	})
	return res, err
}

func (r *retryingProcessor) CancelPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	var res *provider.PaymentIntentResult
	err := r.do(ctx, "cancel_payment_intent", func(ctx context.Context) error {
		var err error
		res, err = r.next.CancelPaymentIntent(ctx, paymentIntentID, idempotencyKey)
		return err
	})
	return res, err
}

func (r *retryingProcessor) RefundPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error) {
	var id string
	err := r.do(ctx, "refund_payment_intent", func(ctx context.Context) error {
		var err error
		id, err = r.next.RefundPaymentIntent(ctx, paymentIntentID, idempotencyKey)
		return err
	})
	return id, err
}

func (r *retryingProcessor) CreateTransfer(ctx context.Context, req *provider.TransferRequest) (string, error) {
	var id string
	err := r.do(ctx, "create_transfer", func(ctx context.Context) error {
		var err error
		id, err = r.next.CreateTransfer(ctx, req)
		return err
	})
	return id, err
}

func (r *retryingProcessor) CreatePayout(ctx context.Context, req *provider.PayoutRequest) (string, error) {
	var id string
	err := r.do(ctx, "create_payout", func(ctx context.Context) error {
		var err error
		id, err = r.next.CreatePayout(ctx, req)
		return err
	})
	return id, err
}
