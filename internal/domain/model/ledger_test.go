package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSplitCommission(t *testing.T) {
	tests := []struct {
		name        string
		total       string
		platformFee string
		hasAgent    bool
		want        CommissionSplit
	}{
		{
			name: "explicit fee, no agent", total: "100.00", platformFee: "12.00",
			want: CommissionSplit{Seller: d("88.00"), Agent: d("0"), Platform: d("12.00")},
		},
		{
			name: "rate fee with agent", total: "100.00", platformFee: "0", hasAgent: true,
			want: CommissionSplit{Seller: d("85.00"), Agent: d("5.00"), Platform: d("10.00")},
		},
		{
			name: "seller absorbs rounding", total: "33.33", platformFee: "0", hasAgent: true,
			want: CommissionSplit{Seller: d("28.33"), Agent: d("1.67"), Platform: d("3.33")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitCommission(d(tt.total), d(tt.platformFee), d("0.10"), d("0.05"), tt.hasAgent)
			assert.True(t, tt.want.Seller.Equal(got.Seller), "seller %s", got.Seller)
			assert.True(t, tt.want.Agent.Equal(got.Agent), "agent %s", got.Agent)
			assert.True(t, tt.want.Platform.Equal(got.Platform), "platform %s", got.Platform)
			assert.True(t, d(tt.total).Equal(got.Total()))
		})
	}
}

func TestSplitAlwaysReconciles(t *testing.T) {
	for cents := int64(1); cents < 5000; cents += 37 {
		total := decimal.New(cents, -2)
		split := SplitCommission(total, decimal.Zero, d("0.125"), d("0.033"), true)
		assert.True(t, total.Equal(split.Total()), "total %s", total)
	}
}

func TestIsBalanced(t *testing.T) {
	group := uuid.New()
	entries := []*LedgerEntry{
		{TransactionGroupID: group, EntryType: EntryTypeDebit, Amount: d("100.00")},
		{TransactionGroupID: group, EntryType: EntryTypeCredit, Amount: d("85.00")},
		{TransactionGroupID: group, EntryType: EntryTypeCredit, Amount: d("15.00")},
	}
	assert.True(t, IsBalanced(entries))

	entries[2].Amount = d("15.01")
	assert.True(t, IsBalanced(entries), "within tolerance")

	entries[2].Amount = d("15.05")
	assert.False(t, IsBalanced(entries))
}
