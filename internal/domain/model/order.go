package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the escrow order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaymentAuthorized OrderStatus = "payment_authorized"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusDisputed          OrderStatus = "disputed"
	OrderStatusRefunded          OrderStatus = "refunded"
)

// Scan implements sql.Scanner interface
func (s *OrderStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentStatus mirrors the processor-side state of the order's payment intent.
type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCanceled   PaymentStatus = "canceled"
)

// IsCaptured reports whether funds have been captured.
func (s PaymentStatus) IsCaptured() bool {
	return s == PaymentStatusCaptured || s == PaymentStatusSucceeded
}

// Order is an escrow order. Status and payment fields change only through
// OrderRepository.Transition.
type Order struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	AgentID             *uuid.UUID      `gorm:"type:uuid" json:"agent_id,omitempty"`
	Status              OrderStatus     `gorm:"size:30;not null;default:'pending';index" json:"status"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discount_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PlatformFee         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"platform_fee"`
	Currency            string          `gorm:"size:3;not null;default:'eur'" json:"currency"`
	PaymentIntentID     *string         `gorm:"size:255;uniqueIndex" json:"payment_intent_id,omitempty"`
	PaymentStatus       PaymentStatus   `gorm:"size:20;not null;default:'unpaid'" json:"payment_status"`
	CancellationReason  *string         `json:"cancellation_reason,omitempty"`
	PaymentAuthorizedAt *time.Time      `json:"payment_authorized_at,omitempty"`
	AcceptedAt          *time.Time      `json:"accepted_at,omitempty"`
	StartedAt           *time.Time      `json:"started_at,omitempty"`
	DeliveredAt         *time.Time      `gorm:"index" json:"delivered_at,omitempty"`
	RevisionRequestedAt *time.Time      `json:"revision_requested_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	DisputedAt          *time.Time      `json:"disputed_at,omitempty"`
	RefundedAt          *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt           time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// AmountsConsistent checks total = subtotal - discount.
func (o *Order) AmountsConsistent() bool {
	return o.TotalAmount.Equal(o.Subtotal.Sub(o.DiscountAmount))
}

// TimestampColumn returns the column stamped when an order enters status.
func TimestampColumn(status OrderStatus) string {
	switch status {
	case OrderStatusPaymentAuthorized:
		return "payment_authorized_at"
	case OrderStatusAccepted:
		return "accepted_at"
	case OrderStatusInProgress:
		return "started_at"
	case OrderStatusDelivered:
		return "delivered_at"
	case OrderStatusRevisionRequested:
		return "revision_requested_at"
	case OrderStatusCompleted:
		return "completed_at"
	case OrderStatusCancelled:
		return "cancelled_at"
	case OrderStatusDisputed:
		return "disputed_at"
	case OrderStatusRefunded:
		return "refunded_at"
	}
	return ""
}
