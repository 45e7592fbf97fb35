package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rata/internal/core"
	"rata/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "rata_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTemplate(t *testing.T, repo *Repository, id string) core.Template {
	t.Helper()
	tpl := core.Template{
		ID:          id,
		OwnerID:     "owner-1",
		AccountID:   "acc-1",
		CategoryID:  "cat-1",
		Amount:      core.Money{Cents: 5000},
		Kind:        core.KindExpense,
		Description: "Streaming subscription",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 15),
		Active:      true,
	}
	require.NoError(t, repo.CreateTemplate(context.Background(), tpl))
	return tpl
}

func TestRepository_TemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	tpl := seedTemplate(t, repo, "tpl-1")

	got, err := repo.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, got.ID)
	assert.Equal(t, tpl.Amount, got.Amount)
	assert.Equal(t, tpl.Frequency, got.Frequency)
	assert.Equal(t, "2024-01-15", got.StartDate.String())
	assert.True(t, got.EndDate.IsEmpty())
	assert.True(t, got.Active)

	got.EndDate = core.NewDate(2024, 12, 31)
	got.Amount = core.Money{Cents: 5500}
	require.NoError(t, repo.UpdateTemplate(ctx, got))

	updated, err := repo.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", updated.EndDate.String())
	assert.Equal(t, int64(5500), updated.Amount.Cents)

	require.NoError(t, repo.SetTemplateActive(ctx, "tpl-1", false))
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = repo.GetTemplate(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRepository_UniqueOccurrenceConstraint(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	seedTemplate(t, repo, "tpl-1")

	occurrence := core.NewDate(2024, 1, 15)
	tx := core.Transaction{
		ID:             "tx-1",
		TemplateID:     "tpl-1",
		OccurrenceDate: occurrence,
		OwnerID:        "owner-1",
		AccountID:      "acc-1",
		CategoryID:     "cat-1",
		Kind:           core.KindExpense,
		Amount:         core.Money{Cents: -5000},
		Description:    "Streaming subscription",
		Date:           occurrence,
	}
	require.NoError(t, repo.InsertTransaction(ctx, tx))

	dup := tx
	dup.ID = "tx-2"
	err := repo.InsertTransaction(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicateOccurrence)

	exists, err := repo.ExistsForOccurrence(ctx, "tpl-1", occurrence)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForOccurrence(ctx, "tpl-1", core.NewDate(2024, 2, 15))
	require.NoError(t, err)
	assert.False(t, exists)

	// Soft delete keeps the occurrence claimed.
	require.NoError(t, repo.SoftDeleteTransaction(ctx, "tx-1"))
	exists, err = repo.ExistsForOccurrence(ctx, "tpl-1", occurrence)
	require.NoError(t, err)
	assert.True(t, exists)

	// Manual transactions have no occurrence and never collide.
	manual := core.Transaction{
		ID:          "tx-manual-1",
		OwnerID:     "owner-1",
		AccountID:   "acc-1",
		CategoryID:  "cat-1",
		Kind:        core.KindExpense,
		Amount:      core.Money{Cents: -1200},
		Description: "Coffee",
		Date:        occurrence,
	}
	require.NoError(t, repo.InsertTransaction(ctx, manual))
	manual.ID = "tx-manual-2"
	require.NoError(t, repo.InsertTransaction(ctx, manual))
}

func TestRepository_SumByCategoryAndRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	insert := func(id, category string, cents int64, d core.Date, deleted bool) {
		t.Helper()
		require.NoError(t, repo.InsertTransaction(ctx, core.Transaction{
			ID:          id,
			OwnerID:     "owner-1",
			AccountID:   "acc-1",
			CategoryID:  category,
			Kind:        core.KindExpense,
			Amount:      core.Money{Cents: cents},
			Description: id,
			Date:        d,
			Deleted:     deleted,
		}))
	}

	insert("a", "cat-1", -20000, core.NewDate(2024, 1, 5), false)
	insert("b", "cat-1", -15000, core.NewDate(2024, 1, 31), false)
	insert("c", "cat-1", -9999, core.NewDate(2024, 2, 1), false)
	insert("d", "cat-2", -5000, core.NewDate(2024, 1, 10), false)
	insert("e", "cat-1", -7000, core.NewDate(2024, 1, 10), true)

	sum, err := repo.SumByCategoryAndRange(ctx, "cat-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(-35000), sum)

	// Empty category sums to zero, not an error.
	sum, err = repo.SumByCategoryAndRange(ctx, "cat-none", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestRepository_BudgetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	b := core.CategoryBudget{
		ID:          "bud-1",
		OwnerID:     "owner-1",
		CategoryID:  "cat-1",
		PeriodStart: core.NewDate(2024, 1, 1),
		PeriodEnd:   core.NewDate(2024, 1, 31),
		Allocated:   core.Money{Cents: 100000},
	}
	require.NoError(t, repo.CreateBudget(ctx, b))

	budgets, err := repo.ListBudgetsByCategory(ctx, "cat-1")
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Zero(t, budgets[0].Spent.Cents)

	require.NoError(t, repo.UpdateBudgetSpent(ctx, "bud-1", 35000))
	got, err := repo.GetBudget(ctx, "bud-1")
	require.NoError(t, err)
	assert.Equal(t, int64(35000), got.Spent.Cents)

	err = repo.UpdateBudgetSpent(ctx, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
