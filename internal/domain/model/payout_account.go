package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles allowed to withdraw.
const (
	RoleSeller = "seller"
	RoleAgent  = "agent"
	RoleBuyer  = "buyer"
)

// PayoutAccount links a user to a connected processor account.
type PayoutAccount struct {
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role            string    `gorm:"size:20;not null" json:"role"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	StripeAccountID *string   `gorm:"size:255;uniqueIndex" json:"stripe_account_id,omitempty"`
	PayoutsEnabled  bool      `gorm:"not null;default:false" json:"payouts_enabled"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PayoutAccount) TableName() string {
	return "payout_accounts"
}

// CanWithdraw reports whether the account may receive payouts.
func (a *PayoutAccount) CanWithdraw() bool {
	return a.Active &&
		(a.Role == RoleSeller || a.Role == RoleAgent) &&
		a.StripeAccountID != nil && *a.StripeAccountID != "" &&
		a.PayoutsEnabled
}
