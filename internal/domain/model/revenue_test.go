package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanReservation(t *testing.T) {
	a := &SellerRevenue{ID: uuid.New(), Amount: d("30.00")}
	b := &SellerRevenue{ID: uuid.New(), Amount: d("50.00")}
	c := &SellerRevenue{ID: uuid.New(), Amount: d("20.00")}
	rows := []*SellerRevenue{a, b, c}

	t.Run("exact rows", func(t *testing.T) {
		plan, available, ok := PlanReservation(rows, d("80.00"))
		require.True(t, ok)
		assert.True(t, d("100.00").Equal(available))
		assert.Equal(t, []uuid.UUID{a.ID, b.ID}, plan.Whole)
		assert.Nil(t, plan.Split)
	})

	t.Run("splits last row", func(t *testing.T) {
		plan, _, ok := PlanReservation(rows, d("45.00"))
		require.True(t, ok)
		assert.Equal(t, []uuid.UUID{a.ID}, plan.Whole)
		require.NotNil(t, plan.Split)
		assert.Equal(t, b.ID, plan.Split.RowID)
		assert.True(t, d("15.00").Equal(plan.Split.Take))
		assert.True(t, d("35.00").Equal(plan.Split.Keep))
	})

	t.Run("insufficient", func(t *testing.T) {
		_, available, ok := PlanReservation(rows, d("100.01"))
		assert.False(t, ok)
		assert.True(t, d("100.00").Equal(available))
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, _, ok := PlanReservation(rows, d("0"))
		assert.False(t, ok)
	})
}
