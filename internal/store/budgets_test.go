package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertBudgetUpdatesInPlace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	cat := mustCategory(t, st, "Groceries", nil)

	first, err := st.UpsertBudget(ctx, cat.ID, 2026, 7, 40000)
	require.NoError(t, err)
	require.Equal(t, int64(40000), first.BudgetCents)

	second, err := st.UpsertBudget(ctx, cat.ID, 2026, 7, 45000)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "conflict keeps the original row")
	require.Equal(t, int64(45000), second.BudgetCents)

	// A different month is a separate row.
	other, err := st.UpsertBudget(ctx, cat.ID, 2026, 8, 40000)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	july, err := st.ListBudgetsForMonth(ctx, 2026, 7)
	require.NoError(t, err)
	require.Len(t, july, 1)
	require.Equal(t, int64(45000), july[0].BudgetCents)
}

func TestBudgetValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	cat := mustCategory(t, st, "Groceries", nil)

	_, err := st.UpsertBudget(ctx, cat.ID, 2026, 13, 1000)
	require.True(t, IsValidation(err))

	_, err = st.UpsertBudget(ctx, cat.ID, 2026, 7, -1)
	require.True(t, IsValidation(err))
}

func TestDeleteBudget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	cat := mustCategory(t, st, "Groceries", nil)
	b, err := st.UpsertBudget(ctx, cat.ID, 2026, 7, 1000)
	require.NoError(t, err)

	require.NoError(t, st.DeleteBudget(ctx, b.ID))
	require.ErrorIs(t, st.DeleteBudget(ctx, b.ID), ErrNotFound)
}

func TestBudgetVsActual(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	food := mustCategory(t, st, "Food", nil)
	fun := mustCategory(t, st, "Fun", nil)
	idle := mustCategory(t, st, "Idle", nil)

	_, err := st.UpsertBudget(ctx, food.ID, 2026, 7, 10000)
	require.NoError(t, err)
	mustPurchase(t, st, "Dinner", "2026-07-10", 12500, &food.ID)
	mustPurchase(t, st, "Cinema", "2026-07-12", 1500, &fun.ID)
	// Outside the month, must not count.
	mustPurchase(t, st, "August dinner", "2026-08-01", 9999, &food.ID)

	rows, err := st.GetBudgetVsActual(ctx, 2026, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2, "category with neither budget nor spend is omitted")

	byID := map[string]BudgetVsActualRow{}
	for _, r := range rows {
		byID[r.CategoryID] = r
	}
	require.NotContains(t, byID, idle.ID)

	foodRow := byID[food.ID]
	require.Equal(t, int64(10000), foodRow.BudgetCents)
	require.Equal(t, int64(12500), foodRow.ActualCents)
	require.Equal(t, int64(-2500), foodRow.VarianceCents)
	require.InDelta(t, 125.0, foodRow.UtilizationPercent, 0.001)

	funRow := byID[fun.ID]
	require.Equal(t, int64(0), funRow.BudgetCents)
	require.Equal(t, int64(1500), funRow.ActualCents)
	require.Equal(t, float64(0), funRow.UtilizationPercent, "no budget means no utilization")
}
