package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// Distribution is everything written when an order's commissions are booked.
type Distribution struct {
	Run      *model.CommissionRun
	Entries  []*model.LedgerEntry
	Revenues []*model.SellerRevenue
	Jobs     []*model.Job
}

// Reversal is everything written when an order's commissions are reversed.
type Reversal struct {
	Run     *model.CommissionRun
	Entries []*model.LedgerEntry
}

// CommissionRepository writes ledger groups. Each write re-checks the group
// balance inside its transaction and rolls back with LEDGER_IMBALANCE.
type CommissionRepository interface {
	// RecordDistribution returns false when the order was already distributed.
	RecordDistribution(ctx context.Context, d *Distribution) (bool, error)

	// RecordReversal cancels the order's pending and available revenue rows
	// and returns the rows that had already been reserved or withdrawn.
	RecordReversal(ctx context.Context, r *Reversal) (inserted bool, unrecovered []*model.SellerRevenue, err error)

	GetRun(ctx context.Context, orderID uuid.UUID, kind model.CommissionRunKind) (*model.CommissionRun, error)
	GetEntries(ctx context.Context, groupID uuid.UUID) ([]*model.LedgerEntry, error)
}
