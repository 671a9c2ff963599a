package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// Orders applies buyer and seller actions to orders
type Orders interface {
	Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error)
	Start(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error)
	Deliver(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error)
	RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error)
	Complete(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID, reason string) (*model.Order, error)
}

type OrderHandler struct {
	logger *zap.Logger
	orders Orders
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func NewOrderHandler(logger *zap.Logger, orders Orders) *OrderHandler {
	return &OrderHandler{
		logger: logger,
		orders: orders,
	}
}

type orderAction func(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error)

func (h *OrderHandler) run(c echo.Context, action orderAction) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	order, err := action(c.Request().Context(), orderID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// Accept handles POST /api/v1/orders/:id/accept
func (h *OrderHandler) Accept(c echo.Context) error { return h.run(c, h.orders.Accept) }

// Start handles POST /api/v1/orders/:id/start
func (h *OrderHandler) Start(c echo.Context) error { return h.run(c, h.orders.Start) }

// Deliver handles POST /api/v1/orders/:id/deliver
func (h *OrderHandler) Deliver(c echo.Context) error { return h.run(c, h.orders.Deliver) }

// RequestRevision handles POST /api/v1/orders/:id/request-revision
func (h *OrderHandler) RequestRevision(c echo.Context) error {
	return h.run(c, h.orders.RequestRevision)
}

// Complete handles POST /api/v1/orders/:id/complete
func (h *OrderHandler) Complete(c echo.Context) error { return h.run(c, h.orders.Complete) }

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c echo.Context) error {
	var req cancelOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.run(c, func(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
		return h.orders.Cancel(ctx, orderID, userID, req.Reason)
	})
}
