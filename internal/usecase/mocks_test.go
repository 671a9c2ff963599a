package usecase_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/provider"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Transition(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus, update domainRepo.OrderUpdate, jobs ...*model.Job) (*model.Order, error) {
	args := m.Called(ctx, orderID, from, to, update, jobs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdatePayment(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, update domainRepo.OrderUpdate) (*model.Order, error) {
	args := m.Called(ctx, orderID, status, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListDeliveredBefore(ctx context.Context, before time.Time, limit int) ([]*model.Order, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*model.Order), args.Error(1)
}

// MockCommissionRepository is a mock implementation of CommissionRepository
type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) RecordDistribution(ctx context.Context, d *domainRepo.Distribution) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommissionRepository) RecordReversal(ctx context.Context, r *domainRepo.Reversal) (bool, []*model.SellerRevenue, error) {
	args := m.Called(ctx, r)
	var rows []*model.SellerRevenue
	if args.Get(1) != nil {
		rows = args.Get(1).([]*model.SellerRevenue)
	}
	return args.Bool(0), rows, args.Error(2)
}

func (m *MockCommissionRepository) GetRun(ctx context.Context, orderID uuid.UUID, kind model.CommissionRunKind) (*model.CommissionRun, error) {
	args := m.Called(ctx, orderID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommissionRun), args.Error(1)
}

func (m *MockCommissionRepository) GetEntries(ctx context.Context, groupID uuid.UUID) ([]*model.LedgerEntry, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).([]*model.LedgerEntry), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) CreateWithReservation(ctx context.Context, w *model.Withdrawal) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByPayoutID(ctx context.Context, payoutID string) (*model.Withdrawal, error) {
	args := m.Called(ctx, payoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListPending(ctx context.Context, limit int) ([]*model.Withdrawal, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int) ([]*model.Withdrawal, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) SetTransferID(ctx context.Context, id uuid.UUID, transferID string) error {
	return m.Called(ctx, id, transferID).Error(0)
}

func (m *MockWithdrawalRepository) SetPayoutID(ctx context.Context, id uuid.UUID, payoutID string) error {
	return m.Called(ctx, id, payoutID).Error(0)
}

func (m *MockWithdrawalRepository) ConfirmSuccess(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) ConfirmFailure(ctx context.Context, id uuid.UUID, reason string) (domainRepo.FailureOutcome, error) {
	args := m.Called(ctx, id, reason)
	return args.Get(0).(domainRepo.FailureOutcome), args.Error(1)
}

func (m *MockWithdrawalRepository) FlagForReview(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

// MockRevenueRepository is a mock implementation of RevenueRepository
type MockRevenueRepository struct {
	mock.Mock
}

func (m *MockRevenueRepository) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRevenueRepository) ReleaseDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockPayoutAccountRepository is a mock implementation of PayoutAccountRepository
type MockPayoutAccountRepository struct {
	mock.Mock
}

func (m *MockPayoutAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PayoutAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PayoutAccount), args.Error(1)
}

func (m *MockPayoutAccountRepository) SyncFromProcessor(ctx context.Context, stripeAccountID string, payoutsEnabled bool) (bool, error) {
	args := m.Called(ctx, stripeAccountID, payoutsEnabled)
	return args.Bool(0), args.Error(1)
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Enqueue(ctx context.Context, jobs ...*model.Job) error {
	return m.Called(ctx, jobs).Error(0)
}

func (m *MockJobRepository) Claim(ctx context.Context, types []model.JobType) (*model.Job, error) {
	args := m.Called(ctx, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockJobRepository) Fail(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time, permanent bool) (*model.Job, error) {
	args := m.Called(ctx, id, lastError, retryAt, permanent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockJobRepository) Defer(ctx context.Context, id uuid.UUID, reason string, until time.Time) error {
	return m.Called(ctx, id, reason, until).Error(0)
}

func (m *MockJobRepository) SweepStale(ctx context.Context, startedBefore time.Time) (int64, []*model.Job, error) {
	args := m.Called(ctx, startedBefore)
	var failed []*model.Job
	if args.Get(1) != nil {
		failed = args.Get(1).([]*model.Job)
	}
	return args.Get(0).(int64), failed, args.Error(2)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Ingest(ctx context.Context, req *domainRepo.IngestRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) GetByEventID(ctx context.Context, eventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *MockEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockEventRepository) RecordFailure(ctx context.Context, eventID string, reason string) error {
	return m.Called(ctx, eventID, reason).Error(0)
}

func (m *MockEventRepository) DeleteReplaysBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnalyticsRepository is a mock implementation of AnalyticsRepository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) RefreshSellerStats(ctx context.Context, sellerID uuid.UUID) (*model.SellerStats, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SellerStats), args.Error(1)
}

// MockAlertRepository is a mock implementation of AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *model.Alert) error {
	return m.Called(ctx, alert).Error(0)
}

// MockAlerter records raised alerts
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Raise(ctx context.Context, severity model.AlertSeverity, source, message string, fields map[string]interface{}) {
	m.Called(ctx, severity, source, message, fields)
}

// MockPublisher is a mock implementation of messaging.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}

// MockSignatureVerifier is a mock implementation of SignatureVerifier
type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) VerifyEvent(payload []byte, signature string) (*provider.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Event), args.Error(1)
}

// MockPaymentProcessor is a mock implementation of PaymentProcessor
type MockPaymentProcessor struct {
	mock.Mock
}

func (m *MockPaymentProcessor) CapturePaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	args := m.Called(ctx, paymentIntentID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentIntentResult), args.Error(1)
}

func (m *MockPaymentProcessor) CancelPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (*provider.PaymentIntentResult, error) {
	args := m.Called(ctx, paymentIntentID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentIntentResult), args.Error(1)
}

func (m *MockPaymentProcessor) RefundPaymentIntent(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error) {
	args := m.Called(ctx, paymentIntentID, idempotencyKey)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProcessor) CreateTransfer(ctx context.Context, req *provider.TransferRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProcessor) CreatePayout(ctx context.Context, req *provider.PayoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
