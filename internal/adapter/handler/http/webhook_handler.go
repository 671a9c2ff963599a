package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// SignatureHeader carries the processor's webhook signature.
const SignatureHeader = "Signature"

// maxWebhookBody bounds the raw event bytes read from one delivery.
const maxWebhookBody = 1 << 20

// WebhookReceiver verifies and records one raw processor event
type WebhookReceiver interface {
	Receive(ctx context.Context, payload []byte, signature string) (*usecase.ReceiveResult, error)
}

type WebhookHandler struct {
	logger   *zap.Logger
	receiver WebhookReceiver
}

type webhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

func NewWebhookHandler(logger *zap.Logger, receiver WebhookReceiver) *WebhookHandler {
	return &WebhookHandler{
		logger:   logger,
		receiver: receiver,
	}
}

// HandleWebhook handles POST /webhooks/payment-events. A 5xx response asks
// the sender to redeliver.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return domainErrors.InvalidArgument("error reading request body")
	}
	if len(body) > maxWebhookBody {
		return domainErrors.InvalidArgument("event payload too large")
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if signature == "" {
		signature = c.Request().Header.Get("Stripe-Signature")
	}

	result, err := h.receiver.Receive(c.Request().Context(), body, signature)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrInvalidSignature) {
			h.logger.Warn("Webhook signature verification failed", zap.Error(err))
		}
		return err
	}

	return c.JSON(http.StatusOK, webhookResponse{
		Received:  true,
		Duplicate: result.Duplicate,
		EventID:   result.EventID,
	})
}
