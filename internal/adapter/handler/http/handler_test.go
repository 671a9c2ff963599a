package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	handlers "github.com/b2aeddine/backend-collabmarket-sub000/internal/adapter/handler/http"
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/middleware/auth"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/usecase"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

type MockWebhookReceiver struct {
	mock.Mock
}

func (m *MockWebhookReceiver) Receive(ctx context.Context, payload []byte, signature string) (*usecase.ReceiveResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ReceiveResult), args.Error(1)
}

type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) Run(ctx context.Context, opts usecase.RunOptions) (*usecase.RunResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.RunResult), args.Error(1)
}

func (m *MockJobRunner) Sweep(ctx context.Context) (*usecase.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SweepResult), args.Error(1)
}

type MockWithdrawals struct {
	mock.Mock
}

func (m *MockWithdrawals) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Withdrawal, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawals) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWithdrawals) ProcessPending(ctx context.Context) ([]usecase.WithdrawalResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.WithdrawalResult), args.Error(1)
}

func (m *MockWithdrawals) RecoverStale(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) result(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrders) Accept(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, sellerID))
}

func (m *MockOrders) Start(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, sellerID))
}

func (m *MockOrders) Deliver(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, sellerID))
}

func (m *MockOrders) RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, buyerID))
}

func (m *MockOrders) Complete(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, buyerID))
}

func (m *MockOrders) Cancel(ctx context.Context, orderID, userID uuid.UUID, reason string) (*model.Order, error) {
	return m.result(m.Called(ctx, orderID, userID, reason))
}

// newContext builds an echo context for a JSON request, authenticated as
// user when it is not nil.
func newContext(method, target, body string, user *uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = handlers.NewRequestValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != nil {
		req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.AuthUser{UserID: *user}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookHandler(t *testing.T) {
	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`

	t.Run("acknowledges a new event", func(t *testing.T) {
		receiver := new(MockWebhookReceiver)
		receiver.On("Receive", mock.Anything, []byte(payload), "t=1,v1=abc").
			Return(&usecase.ReceiveResult{EventID: "evt_1"}, nil)
		c, rec := newContext(http.MethodPost, "/webhooks/payment-events", payload, nil)
		c.Request().Header.Set(handlers.SignatureHeader, "t=1,v1=abc")

		require.NoError(t, handlers.NewWebhookHandler(zap.NewNop(), receiver).HandleWebhook(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true,"event_id":"evt_1"}`, rec.Body.String())
	})

	t.Run("acknowledges a replay", func(t *testing.T) {
		receiver := new(MockWebhookReceiver)
		receiver.On("Receive", mock.Anything, mock.Anything, "t=1,v1=abc").
			Return(&usecase.ReceiveResult{EventID: "evt_1", Duplicate: true}, nil)
		c, rec := newContext(http.MethodPost, "/webhooks/payment-events", payload, nil)
		c.Request().Header.Set("Stripe-Signature", "t=1,v1=abc")

		require.NoError(t, handlers.NewWebhookHandler(zap.NewNop(), receiver).HandleWebhook(c))

		assert.JSONEq(t, `{"received":true,"duplicate":true,"event_id":"evt_1"}`, rec.Body.String())
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		receiver := new(MockWebhookReceiver)
		receiver.On("Receive", mock.Anything, mock.Anything, "bad").
			Return(nil, domainErrors.InvalidSignature(nil))
		c, _ := newContext(http.MethodPost, "/webhooks/payment-events", payload, nil)
		c.Request().Header.Set(handlers.SignatureHeader, "bad")

		err := handlers.NewWebhookHandler(zap.NewNop(), receiver).HandleWebhook(c)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidSignature))
	})
}

func TestJobHandler_RunJobs(t *testing.T) {
	t.Run("converts the request into run options", func(t *testing.T) {
		runner := new(MockJobRunner)
		runner.On("Run", mock.Anything, mock.MatchedBy(func(o usecase.RunOptions) bool {
			return o.MaxJobs == 5 &&
				o.Timeout.Milliseconds() == 20000 &&
				len(o.JobTypes) == 1 && o.JobTypes[0] == model.JobTypeProcessWebhook
		})).Return(&usecase.RunResult{Processed: 2, Successful: 2}, nil)
		c, rec := newContext(http.MethodPost, "/jobs/run", `{"max_jobs":5,"job_types":["process-webhook"],"timeout_ms":20000}`, nil)

		require.NoError(t, handlers.NewJobHandler(zap.NewNop(), runner, new(MockWithdrawals)).RunJobs(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"processed":2`)
		runner.AssertExpectations(t)
	})

	t.Run("body is optional", func(t *testing.T) {
		runner := new(MockJobRunner)
		runner.On("Run", mock.Anything, usecase.RunOptions{}).Return(&usecase.RunResult{}, nil)
		c, rec := newContext(http.MethodPost, "/jobs/run", "", nil)

		require.NoError(t, handlers.NewJobHandler(zap.NewNop(), runner, new(MockWithdrawals)).RunJobs(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("claim failure still reports the jobs that ran", func(t *testing.T) {
		runner := new(MockJobRunner)
		partial := &usecase.RunResult{
			Processed:  1,
			Successful: 1,
			Results:    []usecase.JobOutcome{{JobID: uuid.New(), JobType: model.JobTypeSyncAnalytics, Status: usecase.OutcomeCompleted}},
		}
		runner.On("Run", mock.Anything, usecase.RunOptions{}).
			Return(partial, errors.New("failed to claim job: connection reset"))
		c, rec := newContext(http.MethodPost, "/jobs/run", "", nil)

		require.NoError(t, handlers.NewJobHandler(zap.NewNop(), runner, new(MockWithdrawals)).RunJobs(c))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"processed":1`)
		assert.Contains(t, body, `"successful":1`)
		assert.Contains(t, body, `"job_type":"sync-analytics"`)
		assert.Contains(t, body, `"code":"INTERNAL"`)
		assert.NotContains(t, body, "connection reset")
	})

	t.Run("run error without result is returned", func(t *testing.T) {
		runner := new(MockJobRunner)
		runner.On("Run", mock.Anything, usecase.RunOptions{}).Return(nil, errors.New("boom"))
		c, _ := newContext(http.MethodPost, "/jobs/run", "", nil)

		err := handlers.NewJobHandler(zap.NewNop(), runner, new(MockWithdrawals)).RunJobs(c)

		assert.Error(t, err)
	})

	tests := []struct {
		name string
		body string
	}{
		{"unknown job type", `{"job_types":["resize-images"]}`},
		{"negative max jobs", `{"max_jobs":-1}`},
		{"malformed json", `{"max_jobs":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockJobRunner)
			c, _ := newContext(http.MethodPost, "/jobs/run", tt.body, nil)

			err := handlers.NewJobHandler(zap.NewNop(), runner, new(MockWithdrawals)).RunJobs(c)

			assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
			runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}

func TestJobHandler_SweepJobs(t *testing.T) {
	runner := new(MockJobRunner)
	withdrawals := new(MockWithdrawals)
	stuck := uuid.New()
	runner.On("Sweep", mock.Anything).Return(&usecase.SweepResult{Reset: 2, Failed: []uuid.UUID{}}, nil)
	withdrawals.On("RecoverStale", mock.Anything).Return([]uuid.UUID{stuck}, nil)
	c, rec := newContext(http.MethodPost, "/jobs/sweep", "", nil)

	require.NoError(t, handlers.NewJobHandler(zap.NewNop(), runner, withdrawals).SweepJobs(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reset":2`)
	assert.Contains(t, rec.Body.String(), `"flagged_withdrawals":["`+stuck.String()+`"]`)
	withdrawals.AssertExpectations(t)
}

func TestWithdrawalHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("request", func(t *testing.T) {
		withdrawals := new(MockWithdrawals)
		withdrawals.On("RequestWithdrawal", mock.Anything, userID, decimal.RequireFromString("25.50")).
			Return(&model.Withdrawal{ID: uuid.New(), UserID: userID}, nil)
		c, rec := newContext(http.MethodPost, "/api/v1/withdrawals", `{"amount":"25.50"}`, &userID)

		require.NoError(t, handlers.NewWithdrawalHandler(zap.NewNop(), withdrawals).RequestWithdrawal(c))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("request needs a user", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/api/v1/withdrawals", `{"amount":"25.50"}`, nil)

		err := handlers.NewWithdrawalHandler(zap.NewNop(), new(MockWithdrawals)).RequestWithdrawal(c)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrUnauthenticated))
	})

	t.Run("request rejects a non numeric amount", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/api/v1/withdrawals", `{"amount":"lots"}`, &userID)

		err := handlers.NewWithdrawalHandler(zap.NewNop(), new(MockWithdrawals)).RequestWithdrawal(c)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("balance", func(t *testing.T) {
		withdrawals := new(MockWithdrawals)
		withdrawals.On("Balance", mock.Anything, userID).Return(decimal.RequireFromString("12.5"), nil)
		c, rec := newContext(http.MethodGet, "/api/v1/withdrawals/balance", "", &userID)

		require.NoError(t, handlers.NewWithdrawalHandler(zap.NewNop(), withdrawals).GetBalance(c))

		assert.JSONEq(t, `{"available":"12.50"}`, rec.Body.String())
	})

	t.Run("process batch", func(t *testing.T) {
		withdrawals := new(MockWithdrawals)
		id := uuid.New()
		withdrawals.On("ProcessPending", mock.Anything).Return([]usecase.WithdrawalResult{
			{ID: id, Success: true, TransferID: "tr_1", PayoutID: "po_1"},
		}, nil)
		c, rec := newContext(http.MethodPost, "/withdrawals/process", "", nil)

		require.NoError(t, handlers.NewWithdrawalHandler(zap.NewNop(), withdrawals).ProcessWithdrawals(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"processed":1`)
		assert.Contains(t, rec.Body.String(), id.String())
	})
}

func TestOrderHandler(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("accept", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Accept", mock.Anything, orderID, userID).
			Return(&model.Order{ID: orderID, Status: model.OrderStatusAccepted}, nil)
		c, rec := newContext(http.MethodPost, "/", "", &userID)
		c.SetParamNames("id")
		c.SetParamValues(orderID.String())

		require.NoError(t, handlers.NewOrderHandler(zap.NewNop(), orders).Accept(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), string(model.OrderStatusAccepted))
	})

	t.Run("cancel passes the reason", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Cancel", mock.Anything, orderID, userID, "changed my mind").
			Return(&model.Order{ID: orderID, Status: model.OrderStatusCancelled}, nil)
		c, _ := newContext(http.MethodPost, "/", `{"reason":"changed my mind"}`, &userID)
		c.SetParamNames("id")
		c.SetParamValues(orderID.String())

		require.NoError(t, handlers.NewOrderHandler(zap.NewNop(), orders).Cancel(c))
		orders.AssertExpectations(t)
	})

	t.Run("invalid order id", func(t *testing.T) {
		c, _ := newContext(http.MethodPost, "/", "", &userID)
		c.SetParamNames("id")
		c.SetParamValues("42")

		err := handlers.NewOrderHandler(zap.NewNop(), new(MockOrders)).Deliver(c)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidArgument))
	})

	t.Run("state errors pass through", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Complete", mock.Anything, orderID, userID).
			Return(nil, domainErrors.InvalidStateTransition("in_progress", "completed"))
		c, _ := newContext(http.MethodPost, "/", "", &userID)
		c.SetParamNames("id")
		c.SetParamValues(orderID.String())

		err := handlers.NewOrderHandler(zap.NewNop(), orders).Complete(c)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidStateTransition))
	})
}
