package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle of a payout request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *WithdrawalStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = WithdrawalStatus(v)
	case []byte:
		*s = WithdrawalStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s WithdrawalStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Withdrawal moves a reserved balance to the user's connected account.
// Status changes only through the confirm operations of the repository.
type Withdrawal struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount         decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency       string           `gorm:"size:3;not null" json:"currency"`
	Status         WithdrawalStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TransferID     *string          `gorm:"size:255" json:"transfer_id,omitempty"`
	PayoutID       *string          `gorm:"size:255;index" json:"payout_id,omitempty"`
	FailureReason  *string          `json:"failure_reason,omitempty"`
	RequiresReview bool             `gorm:"not null;default:false" json:"requires_review"`
	ReviewReason   *string          `json:"review_reason,omitempty"`
	ProcessedAt    *time.Time       `json:"processed_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	FailedAt       *time.Time       `json:"failed_at,omitempty"`
	CreatedAt      time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Withdrawal) TableName() string {
	return "withdrawals"
}

// TransferIdempotencyKey keys the transfer call of a withdrawal.
func (w *Withdrawal) TransferIdempotencyKey() string {
	return "wd_" + w.ID.String() + "_transfer"
}

// PayoutIdempotencyKey keys the payout call of a withdrawal.
func (w *Withdrawal) PayoutIdempotencyKey() string {
	return "wd_" + w.ID.String() + "_payout"
}
