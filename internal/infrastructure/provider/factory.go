package provider

import (
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	stripeProvider "github.com/b2aeddine/backend-collabmarket-sub000/internal/infrastructure/provider/stripe"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/retry"
)

// Providers bundles the processor-facing collaborators built from config.
type Providers struct {
	Verifier  provider.SignatureVerifier
	Processor provider.PaymentProcessor
}

// NewProviders creates the Stripe-backed verifier and a retrying processor
func NewProviders(cfg *config.Config, logger *zap.Logger) *Providers {
	if cfg.Stripe.SecretKey == "" {
		logger.Warn("Stripe secret key not configured, processor calls will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("Stripe webhook secret not configured, all webhooks will be rejected")
	}

	stripe := stripeProvider.NewStripeProvider(
		cfg.Stripe.SecretKey,
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.SignatureTolerance,
		nil,
		logger.Named("stripe"),
	)

	return &Providers{
		Verifier:  stripe,
		Processor: NewRetryingProcessor(stripe, RetryPolicy(cfg.Retry), logger),
	}
}

// RetryPolicy builds the shared retry policy from config.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.Default()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		policy.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		policy.MaxDelay = cfg.MaxDelay
	}
	return policy
}
