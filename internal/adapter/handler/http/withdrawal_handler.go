package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
)

// Withdrawals requests and processes payouts
type Withdrawals interface {
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Withdrawal, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ProcessPending(ctx context.Context) ([]usecase.WithdrawalResult, error)
}

type WithdrawalHandler struct {
	logger      *zap.Logger
	withdrawals Withdrawals
}

type withdrawalRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type processWithdrawalsResponse struct {
	Processed int                        `json:"processed"`
	Results   []usecase.WithdrawalResult `json:"results"`
}

func NewWithdrawalHandler(logger *zap.Logger, withdrawals Withdrawals) *WithdrawalHandler {
	return &WithdrawalHandler{
		logger:      logger,
		withdrawals: withdrawals,
	}
}

// RequestWithdrawal handles POST /api/v1/withdrawals
func (h *WithdrawalHandler) RequestWithdrawal(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req withdrawalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return domainErrors.InvalidArgument("amount must be a decimal number")
	}

	w, err := h.withdrawals.RequestWithdrawal(c.Request().Context(), userID, amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

// GetBalance handles GET /api/v1/withdrawals/balance
func (h *WithdrawalHandler) GetBalance(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	balance, err := h.withdrawals.Balance(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"available": balance.StringFixed(2),
	})
}

// ProcessWithdrawals handles POST /withdrawals/process
func (h *WithdrawalHandler) ProcessWithdrawals(c echo.Context) error {
	results, err := h.withdrawals.ProcessPending(c.Request().Context())
	if err != nil {
		return err
	}
	if results == nil {
		results = []usecase.WithdrawalResult{}
	}
	return c.JSON(http.StatusOK, processWithdrawalsResponse{
		Processed: len(results),
		Results:   results,
	})
}
