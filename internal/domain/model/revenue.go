package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueKind tells which commission leg a revenue row came from.
type RevenueKind string

const (
	RevenueKindSeller RevenueKind = "seller"
	RevenueKindAgent  RevenueKind = "agent"
)

// RevenueStatus tracks a revenue row from earning to withdrawal.
type RevenueStatus string

const (
	RevenueStatusPending   RevenueStatus = "pending"
	RevenueStatusAvailable RevenueStatus = "available"
	RevenueStatusReserved  RevenueStatus = "reserved"
	RevenueStatusWithdrawn RevenueStatus = "withdrawn"
	RevenueStatusCancelled RevenueStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *RevenueStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = RevenueStatus(v)
	case []byte:
		*s = RevenueStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s RevenueStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// SellerRevenue is an amount owed to a seller or agent. The available
// balance of a user is the sum of their available rows.
type SellerRevenue struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_seller_revenues_user_status" json:"user_id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Kind         RevenueKind     `gorm:"size:10;not null" json:"kind"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status       RevenueStatus   `gorm:"size:20;not null;index:idx_seller_revenues_user_status" json:"status"`
	AvailableAt  time.Time       `gorm:"not null" json:"available_at"`
	WithdrawalID *uuid.UUID      `gorm:"type:uuid;index" json:"withdrawal_id,omitempty"`
	CreatedAt    time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SellerRevenue) TableName() string {
	return "seller_revenues"
}

// RevenueSplit carves Take out of row RowID; Keep stays available.
type RevenueSplit struct {
	RowID uuid.UUID
	Take  decimal.Decimal
	Keep  decimal.Decimal
}

// ReservationPlan says which available rows a withdrawal consumes.
type ReservationPlan struct {
	Whole []uuid.UUID
	Split *RevenueSplit
}

// PlanReservation consumes rows in the given order (oldest first) until
// amount is covered. The last row is split when only part of it is needed.
// ok is false when the rows do not cover amount.
func PlanReservation(rows []*SellerRevenue, amount decimal.Decimal) (plan ReservationPlan, available decimal.Decimal, ok bool) {
	for _, r := range rows {
		available = available.Add(r.Amount)
	}
	if available.LessThan(amount) || !amount.IsPositive() {
		return ReservationPlan{}, available, false
	}

	remaining := amount
	for _, r := range rows {
		if !remaining.IsPositive() {
			break
		}
		if r.Amount.LessThanOrEqual(remaining) {
			plan.Whole = append(plan.Whole, r.ID)
			remaining = remaining.Sub(r.Amount)
			continue
		}
		plan.Split = &RevenueSplit{
			RowID: r.ID,
			Take:  remaining,
			Keep:  r.Amount.Sub(remaining),
		}
		remaining = decimal.Zero
	}
	return plan, available, true
}
