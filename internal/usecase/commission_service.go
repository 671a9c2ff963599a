package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// CommissionService books and reverses the commission ledger of an order.
// Both operations run at most once per order.
type CommissionService struct {
	orders domainRepo.OrderRepository
	ledger domainRepo.CommissionRepository
	alerts Alerter
	jobs   jobFactory
	cfg    config.CommissionConfig
	logger *zap.Logger
}

// NewCommissionService creates a new commission service instance
func NewCommissionService(
	orders domainRepo.OrderRepository,
	ledger domainRepo.CommissionRepository,
	alerts Alerter,
	cfg config.CommissionConfig,
	maxAttempts int,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		orders: orders,
		ledger: ledger,
		alerts: alerts,
		jobs:   newJobFactory(maxAttempts),
		cfg:    cfg,
		logger: logger,
	}
}

func entry(groupID, orderID uuid.UUID, userID *uuid.UUID, account string, typ model.EntryType, amount decimal.Decimal, desc string) *model.LedgerEntry {
	return &model.LedgerEntry{
		ID:                 uuid.New(),
		TransactionGroupID: groupID,
		OrderID:            orderID,
		UserID:             userID,
		Account:            account,
		EntryType:          typ,
		Amount:             amount,
		Description:        desc,
	}
}

// Distribute writes the commission group of a completed order and the
// seller and agent revenue rows held until the hold period ends.
func (s *CommissionService) Distribute(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperrors.MarkPermanent(domainErrors.NotFound("order", orderID.String()))
	}
	if order.Status != model.OrderStatusCompleted {
		s.logger.Info("Skipping commission distribution",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(order.Status)))
		return nil
	}

	existing, err := s.ledger.GetRun(ctx, orderID, model.CommissionRunDistribute)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Info("Commissions already distributed",
			zap.String("order_id", orderID.String()),
			zap.String("transaction_group_id", existing.TransactionGroupID.String()))
		return nil
	}

	split := model.SplitCommission(order.TotalAmount, order.PlatformFee,
		s.cfg.PlatformRate, s.cfg.AgentRate, order.AgentID != nil)
	if split.Seller.IsNegative() {
		return s.imbalance(ctx, order.ID, uuid.Nil,
			domainErrors.LedgerImbalance("", order.TotalAmount, split.Total()).
				WithDetail("reason", "commission exceeds order total"))
	}

	groupID := uuid.New()
	desc := "commission distribution for order " + order.ID.String()
	sellerID := order.SellerID
	entries := []*model.LedgerEntry{
		entry(groupID, order.ID, nil, model.AccountEscrow, model.EntryTypeDebit, order.TotalAmount, desc),
		entry(groupID, order.ID, &sellerID, model.AccountSellerPayable, model.EntryTypeCredit, split.Seller, desc),
	}
	if order.AgentID != nil && split.Agent.IsPositive() {
		entries = append(entries, entry(groupID, order.ID, order.AgentID, model.AccountAgentPayable, model.EntryTypeCredit, split.Agent, desc))
	}
	if split.Platform.IsPositive() {
		entries = append(entries, entry(groupID, order.ID, nil, model.AccountPlatformRevenue, model.EntryTypeCredit, split.Platform, desc))
	}
	if !model.IsBalanced(entries) {
		debits, credits := model.SumEntries(entries)
		return s.imbalance(ctx, order.ID, groupID, domainErrors.LedgerImbalance(groupID.String(), debits, credits))
	}

	availableAt := time.Now().Add(s.cfg.HoldPeriod)
	var revenues []*model.SellerRevenue
	if split.Seller.IsPositive() {
		revenues = append(revenues, &model.SellerRevenue{
			ID:          uuid.New(),
			UserID:      order.SellerID,
			OrderID:     order.ID,
			Kind:        model.RevenueKindSeller,
			Amount:      split.Seller,
			Status:      model.RevenueStatusPending,
			AvailableAt: availableAt,
		})
	}
	if order.AgentID != nil && split.Agent.IsPositive() {
		revenues = append(revenues, &model.SellerRevenue{
			ID:          uuid.New(),
			UserID:      *order.AgentID,
			OrderID:     order.ID,
			Kind:        model.RevenueKindAgent,
			Amount:      split.Agent,
			Status:      model.RevenueStatusPending,
			AvailableAt: availableAt,
		})
	}

	jobs := &jobList{}
	jobs.add(s.jobs.job(model.JobTypeSyncAnalytics,
		model.SyncAnalyticsPayload{SellerID: order.SellerID}, model.PrioritySyncAnalytics))
	jobs.add(s.jobs.notification(model.SendNotificationPayload{
		UserID:  order.SellerID,
		Kind:    "revenue_pending",
		Title:   "New revenue",
		Message: fmt.Sprintf("%s %s will be available on %s", split.Seller.StringFixed(2), order.Currency, availableAt.Format("2006-01-02")),
		Data:    map[string]string{"order_id": order.ID.String()},
	}))
	if jobs.err != nil {
		return fmt.Errorf("failed to build commission jobs: %w", jobs.err)
	}

	run := &model.CommissionRun{
		ID:                 uuid.New(),
		OrderID:            order.ID,
		Kind:               model.CommissionRunDistribute,
		TransactionGroupID: groupID,
		SellerAmount:       split.Seller,
		AgentAmount:        split.Agent,
		PlatformAmount:     split.Platform,
	}
	inserted, err := s.ledger.RecordDistribution(ctx, &domainRepo.Distribution{
		Run:      run,
		Entries:  entries,
		Revenues: revenues,
		Jobs:     jobs.jobs,
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrLedgerImbalance) {
			return s.imbalance(ctx, order.ID, groupID, err)
		}
		return err
	}
	if !inserted {
		s.logger.Info("Commissions distributed concurrently", zap.String("order_id", order.ID.String()))
		return nil
	}

	s.logger.Info("Commissions distributed",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_group_id", groupID.String()),
		zap.String("seller", split.Seller.StringFixed(2)),
		zap.String("agent", split.Agent.StringFixed(2)),
		zap.String("platform", split.Platform.StringFixed(2)))
	return nil
}

// Reverse mirrors the distribution group of an order. Revenue not yet
// withdrawn is cancelled; revenue already reserved or paid out raises a
// critical alert for manual recovery.
func (s *CommissionService) Reverse(ctx context.Context, orderID uuid.UUID, reason string) error {
	dist, err := s.ledger.GetRun(ctx, orderID, model.CommissionRunDistribute)
	if err != nil {
		return err
	}
	if dist == nil {
		s.logger.Info("No commissions to reverse", zap.String("order_id", orderID.String()))
		return nil
	}

	existing, err := s.ledger.GetRun(ctx, orderID, model.CommissionRunReverse)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	original, err := s.ledger.GetEntries(ctx, dist.TransactionGroupID)
	if err != nil {
		return err
	}

	groupID := uuid.New()
	desc := "commission reversal for order " + orderID.String()
	if reason != "" {
		desc += ": " + reason
	}
	entries := make([]*model.LedgerEntry, 0, len(original))
	for _, e := range original {
		typ := model.EntryTypeCredit
		if e.EntryType == model.EntryTypeCredit {
			typ = model.EntryTypeDebit
		}
		entries = append(entries, entry(groupID, orderID, e.UserID, e.Account, typ, e.Amount, desc))
	}
	if !model.IsBalanced(entries) {
		debits, credits := model.SumEntries(entries)
		return s.imbalance(ctx, orderID, groupID, domainErrors.LedgerImbalance(groupID.String(), debits, credits))
	}

	run := &model.CommissionRun{
		ID:                 uuid.New(),
		OrderID:            orderID,
		Kind:               model.CommissionRunReverse,
		TransactionGroupID: groupID,
		SellerAmount:       dist.SellerAmount,
		AgentAmount:        dist.AgentAmount,
		PlatformAmount:     dist.PlatformAmount,
	}
	inserted, unrecovered, err := s.ledger.RecordReversal(ctx, &domainRepo.Reversal{Run: run, Entries: entries})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrLedgerImbalance) {
			return s.imbalance(ctx, orderID, groupID, err)
		}
		return err
	}
	if !inserted {
		return nil
	}

	s.logger.Info("Commissions reversed",
		zap.String("order_id", orderID.String()),
		zap.String("transaction_group_id", groupID.String()),
		zap.String("reason", reason))

	if len(unrecovered) > 0 {
		total := decimal.Zero
		ids := make([]string, 0, len(unrecovered))
		for _, r := range unrecovered {
			total = total.Add(r.Amount)
			ids = append(ids, r.ID.String())
		}
		s.alerts.Raise(ctx, model.AlertSeverityCritical, "commission_service",
			"reversed revenue was already withdrawn", map[string]interface{}{
				"order_id":    orderID.String(),
				"amount":      total.StringFixed(2),
				"revenue_ids": ids,
			})
	}
	return nil
}

func (s *CommissionService) imbalance(ctx context.Context, orderID, groupID uuid.UUID, err error) error {
	s.alerts.Raise(ctx, model.AlertSeverityCritical, "commission_service", "ledger imbalance", map[string]interface{}{
		"order_id":             orderID.String(),
		"transaction_group_id": groupID.String(),
		"error":                err.Error(),
	})
	return apperrors.MarkPermanent(err)
}
