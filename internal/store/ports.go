// Package store defines the persistence ports the scheduling engine
// depends on, plus the sentinel errors every backend must honor.
package store

import (
	"context"
	"errors"

	"rata/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateOccurrence is returned by InsertTransaction when a
	// transaction for the same (template, occurrence date) pair already
	// exists. Backends must enforce this with a uniqueness constraint so
	// concurrent materialization stays safe; the engine treats it as an
	// expected outcome, not a failure.
	ErrDuplicateOccurrence = errors.New("occurrence already materialized")
)

// TemplateStore persists recurring transaction templates.
type TemplateStore interface {
	// ListActive returns all templates with the active flag set.
	ListActive(ctx context.Context) ([]core.Template, error)
	GetTemplate(ctx context.Context, id string) (core.Template, error)
	CreateTemplate(ctx context.Context, tpl core.Template) error
	// UpdateTemplate replaces the mutable fields of a template. Already
	// materialized transactions are never touched.
	UpdateTemplate(ctx context.Context, tpl core.Template) error
	// SetTemplateActive pauses or resumes a template (soft deactivation;
	// templates referenced by transactions are never hard-deleted).
	SetTemplateActive(ctx context.Context, id string, active bool) error
}

// TransactionStore persists posted transactions, both materialized and
// manual.
type TransactionStore interface {
	// InsertTransaction stores a new transaction. Returns
	// ErrDuplicateOccurrence when the (template, occurrence date) pair is
	// already taken.
	InsertTransaction(ctx context.Context, tx core.Transaction) error
	// ExistsForOccurrence reports whether a transaction for the pair
	// already exists. Soft-deleted rows still count, so a deleted
	// materialized transaction is never re-created by a later run.
	ExistsForOccurrence(ctx context.Context, templateID string, occurrence core.Date) (bool, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	// SoftDeleteTransaction marks a transaction deleted without removing
	// the row, keeping the occurrence claimed.
	SoftDeleteTransaction(ctx context.Context, id string) error
	// SumByCategoryAndRange sums signed cents of non-deleted transactions
	// in a category between two dates, boundaries inclusive.
	SumByCategoryAndRange(ctx context.Context, categoryID string, start, end core.Date) (int64, error)
	ListByTemplate(ctx context.Context, templateID string) ([]core.Transaction, error)
}

// BudgetStore persists per-category budget allocations and their derived
// spent totals.
type BudgetStore interface {
	ListBudgetsByCategory(ctx context.Context, categoryID string) ([]core.CategoryBudget, error)
	GetBudget(ctx context.Context, id string) (core.CategoryBudget, error)
	CreateBudget(ctx context.Context, b core.CategoryBudget) error
	UpdateBudgetSpent(ctx context.Context, id string, spentCents int64) error
}
