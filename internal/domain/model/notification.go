package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Notification is a user-facing message produced by a send-notification job.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	Kind      string         `gorm:"size:50;not null" json:"kind"`
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `gorm:"not null" json:"message"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// SellerStats is the analytics aggregate refreshed by sync-analytics.
type SellerStats struct {
	SellerID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"seller_id"`
	CompletedOrders int64           `gorm:"not null;default:0" json:"completed_orders"`
	RefundedOrders  int64           `gorm:"not null;default:0" json:"refunded_orders"`
	GrossRevenue    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"gross_revenue"`
	NetRevenue      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"net_revenue"`
	UpdatedAt       time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SellerStats) TableName() string {
	return "seller_stats"
}
