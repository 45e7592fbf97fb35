package services

import (
	"context"
	"fmt"
	"log/slog"

	"rata/internal/core"
	"rata/internal/store"
)

// Reconciler keeps CategoryBudget spent totals equal to the sum of stored
// transactions. It always recomputes from storage rather than adjusting
// incrementally, so re-running after a partial failure converges on the
// correct total.
type Reconciler struct {
	transactions store.TransactionStore
	budgets      store.BudgetStore
}

func NewReconciler(transactions store.TransactionStore, budgets store.BudgetStore) *Reconciler {
	return &Reconciler{transactions: transactions, budgets: budgets}
}

// OnTransactionPosted refreshes every budget covering the transaction's
// category and date.
func (r *Reconciler) OnTransactionPosted(ctx context.Context, tx core.Transaction) error {
	return r.reconcile(ctx, tx.CategoryID, tx.Date)
}

// OnTransactionEdited refreshes the budgets of both the old and the new
// (category, date) side, so reclassifications and date moves update the
// budget the transaction left as well as the one it entered.
func (r *Reconciler) OnTransactionEdited(ctx context.Context, old, updated core.Transaction) error {
	if err := r.reconcile(ctx, old.CategoryID, old.Date); err != nil {
		return err
	}
	if old.CategoryID == updated.CategoryID && old.Date.Equal(updated.Date.Time) {
		return nil
	}
	return r.reconcile(ctx, updated.CategoryID, updated.Date)
}

// OnTransactionDeleted refreshes every budget the deleted transaction was
// counted in.
func (r *Reconciler) OnTransactionDeleted(ctx context.Context, tx core.Transaction) error {
	return r.reconcile(ctx, tx.CategoryID, tx.Date)
}

// reconcile recomputes spent for every budget of the category whose
// period contains the date. Spent is the negated sum of signed amounts,
// clamped at zero: expenses are stored negative, so a month of expenses
// yields a positive spent total, and a net-positive category never goes
// below zero.
func (r *Reconciler) reconcile(ctx context.Context, categoryID string, date core.Date) error {
	budgets, err := r.budgets.ListBudgetsByCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("list budgets for category %s: %w", categoryID, err)
	}

	for _, b := range budgets {
		if !b.Contains(date) {
			continue
		}

		sum, err := r.transactions.SumByCategoryAndRange(ctx, categoryID, b.PeriodStart, b.PeriodEnd)
		if err != nil {
			return fmt.Errorf("sum transactions for budget %s: %w", b.ID, err)
		}

		spent := -sum
		if spent < 0 {
			spent = 0
		}

		if spent == b.Spent.Cents {
			continue
		}
		if err := r.budgets.UpdateBudgetSpent(ctx, b.ID, spent); err != nil {
			return fmt.Errorf("update spent for budget %s: %w", b.ID, err)
		}

		slog.InfoContext(ctx, "Reconciled budget",
			"budget_id", b.ID,
			"category_id", categoryID,
			"spent_cents", spent,
			"allocated_cents", b.Allocated.Cents)
	}

	return nil
}
