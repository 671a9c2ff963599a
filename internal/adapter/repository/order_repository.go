package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
	domainRepo "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/repository"
)

type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates the order repository
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) domainRepo.OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	return r.first(ctx, "payment_intent_id = ?", paymentIntentID)
}

func (r *orderRepository) first(ctx context.Context, query string, arg interface{}) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where(query, arg).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get order", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func applyUpdate(updates map[string]interface{}, update domainRepo.OrderUpdate) {
	if update.PaymentStatus != nil {
		updates["payment_status"] = *update.PaymentStatus
	}
	if update.CancellationReason != nil {
		updates["cancellation_reason"] = *update.CancellationReason
	}
}

// Transition moves an order between statuses if it is still in from
func (r *orderRepository) Transition(ctx context.Context, orderID uuid.UUID, from, to model.OrderStatus, update domainRepo.OrderUpdate, jobs ...*model.Job) (*model.Order, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if col := model.TimestampColumn(to); col != "" {
		updates[col] = now
	}
	applyUpdate(updates, update)

	var order model.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", orderID, from).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var current model.Order
			if err := tx.Select("status").Where("id = ?", orderID).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainErrors.NotFound("order", orderID.String())
				}
				return fmt.Errorf("failed to reload order: %w", err)
			}
			return domainErrors.InvalidStateTransition(string(current.Status), string(to)).
				WithDetail("expected_status", string(from))
		}

		if len(jobs) > 0 {
			if err := tx.Create(jobs).Error; err != nil {
				return fmt.Errorf("failed to enqueue order jobs: %w", err)
			}
		}

		return tx.Where("id = ?", orderID).First(&order).Error
	})
	if err != nil {
		r.logger.Warn("Order transition failed",
			zap.String("order_id", orderID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Order transitioned",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("jobs", len(jobs)))

	return &order, nil
}

// UpdatePayment updates payment fields while the order stays in status
func (r *orderRepository) UpdatePayment(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, update domainRepo.OrderUpdate) (*model.Order, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	applyUpdate(updates, update)

	var order model.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", orderID, status).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update order payment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var current model.Order
			if err := tx.Select("status").Where("id = ?", orderID).First(&current).Error; err != nil {
				return domainErrors.NotFound("order", orderID.String())
			}
			return domainErrors.InvalidStateTransition(string(current.Status), string(status)).
				WithDetail("reason", "order status changed concurrently")
		}
		return tx.Where("id = ?", orderID).First(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListDeliveredBefore returns delivered orders past the confirmation window
func (r *orderRepository) ListDeliveredBefore(ctx context.Context, before time.Time, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND delivered_at < ?", model.OrderStatusDelivered, before).
		Order("delivered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		r.logger.Error("Failed to list delivered orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list delivered orders: %w", err)
	}
	return orders, nil
}
