package services

import (
	"context"
	"testing"

	"rata/internal/core"
	"rata/internal/store/memory"
)

func newMaterializerUnderTest(s *memory.Store) *Materializer {
	return NewMaterializer(s, NewReconciler(s, s), nil)
}

func TestMaterializer_CopiesTemplateFields(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	tpl := monthlyTemplate("tpl-1")
	occurrence := core.NewDate(2024, 1, 15)

	tx, outcome, err := m.Materialize(ctx, tpl, occurrence)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("Materialize() outcome = %v, want created", outcome)
	}
	if tx.ID == "" {
		t.Error("materialized transaction has no id")
	}
	if tx.TemplateID != tpl.ID {
		t.Errorf("TemplateID = %s, want %s", tx.TemplateID, tpl.ID)
	}
	if !tx.OccurrenceDate.Equal(occurrence.Time) || !tx.Date.Equal(occurrence.Time) {
		t.Errorf("dates = %s/%s, want %s", tx.OccurrenceDate, tx.Date, occurrence)
	}
	if tx.Amount.Cents != -5000 {
		t.Errorf("expense amount = %d, want -5000", tx.Amount.Cents)
	}
	if tx.CategoryID != tpl.CategoryID || tx.AccountID != tpl.AccountID || tx.Description != tpl.Description {
		t.Error("materialized transaction did not copy template fields")
	}
}

func TestMaterializer_IncomeKeepsPositiveSign(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	tpl := monthlyTemplate("tpl-salary")
	tpl.Kind = core.KindIncome
	tpl.Amount = core.Money{Cents: 250000}

	tx, _, err := m.Materialize(ctx, tpl, core.NewDate(2024, 1, 15))
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if tx.Amount.Cents != 250000 {
		t.Errorf("income amount = %d, want 250000", tx.Amount.Cents)
	}
}

func TestMaterializer_SecondCallReportsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	tpl := monthlyTemplate("tpl-1")
	occurrence := core.NewDate(2024, 1, 15)

	if _, outcome, err := m.Materialize(ctx, tpl, occurrence); err != nil || outcome != OutcomeCreated {
		t.Fatalf("first Materialize() = %v, %v", outcome, err)
	}

	_, outcome, err := m.Materialize(ctx, tpl, occurrence)
	if err != nil {
		t.Fatalf("second Materialize() error = %v", err)
	}
	if outcome != OutcomeAlreadyExists {
		t.Errorf("second Materialize() outcome = %v, want already_exists", outcome)
	}

	rows, err := s.ListByTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("ListByTemplate() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("transactions = %d, want 1", len(rows))
	}
}

func TestMaterializer_ConcurrentInsertLosesGracefully(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	tpl := monthlyTemplate("tpl-1")
	occurrence := core.NewDate(2024, 1, 15)

	// Simulate a concurrent writer claiming the occurrence between the
	// existence check and the insert: the store already holds the row.
	materializeAt(t, s, tpl, occurrence)

	_, outcome, err := m.Materialize(ctx, tpl, occurrence)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if outcome != OutcomeAlreadyExists {
		t.Errorf("outcome = %v, want already_exists", outcome)
	}
}

func TestMaterializer_LaterTemplateEditDoesNotRewriteHistory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	tpl := monthlyTemplate("tpl-1")
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	tx, _, err := m.Materialize(ctx, tpl, core.NewDate(2024, 1, 15))
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	tpl.Amount = core.Money{Cents: 9900}
	tpl.CategoryID = "cat-other"
	if err := s.UpdateTemplate(ctx, tpl); err != nil {
		t.Fatalf("UpdateTemplate() error = %v", err)
	}

	stored, err := s.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if stored.Amount.Cents != -5000 || stored.CategoryID != "cat-1" {
		t.Errorf("historical transaction changed: amount %d category %s", stored.Amount.Cents, stored.CategoryID)
	}
}

func TestMaterializer_UpdatesCoveringBudget(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	m := newMaterializerUnderTest(s)

	if err := s.CreateBudget(ctx, core.CategoryBudget{
		ID:          "bud-1",
		OwnerID:     "owner-1",
		CategoryID:  "cat-1",
		PeriodStart: core.NewDate(2024, 1, 1),
		PeriodEnd:   core.NewDate(2024, 1, 31),
		Allocated:   core.Money{Cents: 100000},
	}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	tpl := monthlyTemplate("tpl-1")
	if _, _, err := m.Materialize(ctx, tpl, core.NewDate(2024, 1, 15)); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	b, err := s.GetBudget(ctx, "bud-1")
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if b.Spent.Cents != 5000 {
		t.Errorf("budget spent = %d, want 5000", b.Spent.Cents)
	}
}
