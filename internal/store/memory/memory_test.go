package memory

import (
	"context"
	"errors"
	"testing"

	"rata/internal/core"
	"rata/internal/store"
)

func testTemplate(id string) core.Template {
	return core.Template{
		ID:          id,
		OwnerID:     "owner-1",
		AccountID:   "acc-1",
		CategoryID:  "cat-1",
		Amount:      core.Money{Cents: 5000},
		Kind:        core.KindExpense,
		Description: "Gym membership",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 15),
		Active:      true,
	}
}

func TestStore_TemplateLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateTemplate(ctx, testTemplate("tpl-1")); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	if err := s.CreateTemplate(ctx, testTemplate("tpl-1")); err == nil {
		t.Fatal("CreateTemplate() duplicate id should fail")
	}

	inactive := testTemplate("tpl-2")
	inactive.Active = false
	if err := s.CreateTemplate(ctx, inactive); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	active, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "tpl-1" {
		t.Errorf("ListActive() = %v, want only tpl-1", active)
	}

	if err := s.SetTemplateActive(ctx, "tpl-2", true); err != nil {
		t.Fatalf("SetTemplateActive() error = %v", err)
	}
	active, _ = s.ListActive(ctx)
	if len(active) != 2 {
		t.Errorf("ListActive() after reactivation = %d templates, want 2", len(active))
	}

	if _, err := s.GetTemplate(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTemplate(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_OccurrenceUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
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
		Description:    "Gym membership",
		Date:           occurrence,
	}

	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	dup := tx
	dup.ID = "tx-2"
	if err := s.InsertTransaction(ctx, dup); !errors.Is(err, store.ErrDuplicateOccurrence) {
		t.Errorf("InsertTransaction() duplicate occurrence error = %v, want ErrDuplicateOccurrence", err)
	}

	exists, err := s.ExistsForOccurrence(ctx, "tpl-1", occurrence)
	if err != nil || !exists {
		t.Errorf("ExistsForOccurrence() = %v, %v, want true, nil", exists, err)
	}

	// A soft delete keeps the occurrence claimed.
	if err := s.SoftDeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("SoftDeleteTransaction() error = %v", err)
	}
	exists, _ = s.ExistsForOccurrence(ctx, "tpl-1", occurrence)
	if !exists {
		t.Error("ExistsForOccurrence() after soft delete = false, want true")
	}

	// Manual transactions without a template never collide.
	manual := core.Transaction{
		ID:          "tx-manual",
		OwnerID:     "owner-1",
		AccountID:   "acc-1",
		CategoryID:  "cat-1",
		Kind:        core.KindExpense,
		Amount:      core.Money{Cents: -1200},
		Description: "Coffee",
		Date:        occurrence,
	}
	if err := s.InsertTransaction(ctx, manual); err != nil {
		t.Errorf("InsertTransaction() manual error = %v", err)
	}
}

func TestStore_SumByCategoryAndRange(t *testing.T) {
	ctx := context.Background()
	s := New()

	insert := func(id, category string, cents int64, d core.Date, deleted bool) {
		t.Helper()
		tx := core.Transaction{
			ID:          id,
			OwnerID:     "owner-1",
			AccountID:   "acc-1",
			CategoryID:  category,
			Kind:        core.KindExpense,
			Amount:      core.Money{Cents: cents},
			Description: id,
			Date:        d,
			Deleted:     deleted,
		}
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction(%s) error = %v", id, err)
		}
	}

	insert("a", "cat-1", -20000, core.NewDate(2024, 1, 5), false)
	insert("b", "cat-1", -15000, core.NewDate(2024, 1, 31), false) // inclusive boundary
	insert("c", "cat-1", -9999, core.NewDate(2024, 2, 1), false)   // outside range
	insert("d", "cat-2", -5000, core.NewDate(2024, 1, 10), false)  // other category
	insert("e", "cat-1", -7000, core.NewDate(2024, 1, 10), true)   // deleted

	sum, err := s.SumByCategoryAndRange(ctx, "cat-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("SumByCategoryAndRange() error = %v", err)
	}
	if sum != -35000 {
		t.Errorf("SumByCategoryAndRange() = %d, want -35000", sum)
	}
}

func TestStore_BudgetSpent(t *testing.T) {
	ctx := context.Background()
	s := New()

	b := core.CategoryBudget{
		ID:          "bud-1",
		OwnerID:     "owner-1",
		CategoryID:  "cat-1",
		PeriodStart: core.NewDate(2024, 1, 1),
		PeriodEnd:   core.NewDate(2024, 1, 31),
		Allocated:   core.Money{Cents: 100000},
	}
	if err := s.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	if err := s.UpdateBudgetSpent(ctx, "bud-1", 35000); err != nil {
		t.Fatalf("UpdateBudgetSpent() error = %v", err)
	}

	got, err := s.GetBudget(ctx, "bud-1")
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if got.Spent.Cents != 35000 {
		t.Errorf("Spent = %d, want 35000", got.Spent.Cents)
	}

	if err := s.UpdateBudgetSpent(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateBudgetSpent(missing) error = %v, want ErrNotFound", err)
	}
}
