package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the side of a ledger entry.
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// Ledger accounts.
const (
	AccountEscrow          = "escrow"
	AccountSellerPayable   = "seller_payable"
	AccountAgentPayable    = "agent_payable"
	AccountPlatformRevenue = "platform_revenue"
)

// LedgerTolerance is the rounding slack allowed between debits and credits.
var LedgerTolerance = decimal.RequireFromString("0.01")

// LedgerEntry is one leg of a double-entry transaction group.
type LedgerEntry struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionGroupID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_group_id"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	UserID             *uuid.UUID      `gorm:"type:uuid" json:"user_id,omitempty"`
	Account            string          `gorm:"size:50;not null" json:"account"`
	EntryType          EntryType       `gorm:"size:10;not null" json:"entry_type"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description        string          `json:"description"`
	CreatedAt          time.Time       `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// CommissionRunKind distinguishes distribution from reversal.
type CommissionRunKind string

const (
	CommissionRunDistribute CommissionRunKind = "distribute"
	CommissionRunReverse    CommissionRunKind = "reverse"
)

// CommissionRun records that a ledger group was written for an order. The
// unique (order_id, kind) index makes distribution and reversal run once.
type CommissionRun struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID            uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_commission_runs_order_kind" json:"order_id"`
	Kind               CommissionRunKind `gorm:"size:20;not null;uniqueIndex:idx_commission_runs_order_kind" json:"kind"`
	TransactionGroupID uuid.UUID         `gorm:"type:uuid;not null" json:"transaction_group_id"`
	SellerAmount       decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"seller_amount"`
	AgentAmount        decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"agent_amount"`
	PlatformAmount     decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"platform_amount"`
	CreatedAt          time.Time         `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (CommissionRun) TableName() string {
	return "commission_runs"
}

// CommissionSplit is the three-way division of an order total.
type CommissionSplit struct {
	Seller   decimal.Decimal
	Agent    decimal.Decimal
	Platform decimal.Decimal
}

// Total sums the three legs.
func (s CommissionSplit) Total() decimal.Decimal {
	return s.Seller.Add(s.Agent).Add(s.Platform)
}

// SplitCommission divides total. The platform leg is platformFee when set,
// otherwise total*platformRate; the agent leg is total*agentRate when the
// order has an agent. Both are rounded to cents and the seller leg takes the
// remainder, so the split always sums to total exactly.
func SplitCommission(total, platformFee, platformRate, agentRate decimal.Decimal, hasAgent bool) CommissionSplit {
	platform := platformFee.Round(2)
	if platform.IsZero() {
		platform = total.Mul(platformRate).Round(2)
	}

	agent := decimal.Zero
	if hasAgent {
		agent = total.Mul(agentRate).Round(2)
	}

	return CommissionSplit{
		Seller:   total.Sub(platform).Sub(agent),
		Agent:    agent,
		Platform: platform,
	}
}

// SumEntries totals debits and credits of a group.
func SumEntries(entries []*LedgerEntry) (debits, credits decimal.Decimal) {
	for _, e := range entries {
		switch e.EntryType {
		case EntryTypeDebit:
			debits = debits.Add(e.Amount)
		case EntryTypeCredit:
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}

// IsBalanced reports whether debits and credits agree within LedgerTolerance.
func IsBalanced(entries []*LedgerEntry) bool {
	debits, credits := SumEntries(entries)
	return debits.Sub(credits).Abs().LessThanOrEqual(LedgerTolerance)
}
