// Package sqlite implements the store ports on SQLite. The
// (template_id, occurrence_date) unique index is the storage-level guard
// that makes concurrent materialization safe.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"rata/internal/core"
	"rata/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueViolation detects the driver's unique constraint error. The
// modernc driver surfaces SQLITE_CONSTRAINT_UNIQUE as a plain error
// message, there is no typed error to unwrap.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseNullDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

// ListActive implements store.TemplateStore.
func (r *Repository) ListActive(ctx context.Context) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, account_id, category_id, amount_cents, kind,
		       description, frequency, start_date, end_date, active
		FROM templates
		WHERE active = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var out []core.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (core.Template, error) {
	var (
		tpl        core.Template
		startDate  string
		endDate    sql.NullString
		activeFlag int64
	)
	err := row.Scan(&tpl.ID, &tpl.OwnerID, &tpl.AccountID, &tpl.CategoryID,
		&tpl.Amount.Cents, &tpl.Kind, &tpl.Description, &tpl.Frequency,
		&startDate, &endDate, &activeFlag)
	if err != nil {
		return core.Template{}, err
	}
	if tpl.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Template{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if tpl.EndDate, err = parseNullDate(endDate); err != nil {
		return core.Template{}, fmt.Errorf("parse end date %q: %w", endDate.String, err)
	}
	tpl.Active = activeFlag != 0
	return tpl, nil
}

func (r *Repository) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, account_id, category_id, amount_cents, kind,
		       description, frequency, start_date, end_date, active
		FROM templates
		WHERE id = ?`, id)

	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, fmt.Errorf("template %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Template{}, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

func (r *Repository) CreateTemplate(ctx context.Context, tpl core.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO templates (id, owner_id, account_id, category_id, amount_cents,
		                       kind, description, frequency, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.OwnerID, tpl.AccountID, tpl.CategoryID, tpl.Amount.Cents,
		string(tpl.Kind), tpl.Description, string(tpl.Frequency),
		tpl.StartDate.String(), nullDate(tpl.EndDate), tpl.Active)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTemplate(ctx context.Context, tpl core.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE templates
		SET account_id = ?, category_id = ?, amount_cents = ?, kind = ?,
		    description = ?, frequency = ?, start_date = ?, end_date = ?,
		    active = ?, updated_at = datetime('now')
		WHERE id = ?`,
		tpl.AccountID, tpl.CategoryID, tpl.Amount.Cents, string(tpl.Kind),
		tpl.Description, string(tpl.Frequency), tpl.StartDate.String(),
		nullDate(tpl.EndDate), tpl.Active, tpl.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res, "template", tpl.ID)
}

func (r *Repository) SetTemplateActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE templates SET active = ?, updated_at = datetime('now') WHERE id = ?`,
		active, id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	return requireRow(res, "template", id)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

// InsertTransaction implements store.TransactionStore.
func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, template_id, occurrence_date, owner_id,
		                          account_id, category_id, kind, amount_cents,
		                          description, tx_date, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, nullString(tx.TemplateID), nullDate(tx.OccurrenceDate), tx.OwnerID,
		tx.AccountID, tx.CategoryID, string(tx.Kind), tx.Amount.Cents,
		tx.Description, tx.Date.String(), tx.Deleted)
	if isUniqueViolation(err) {
		return fmt.Errorf("template %s occurrence %s: %w",
			tx.TemplateID, tx.OccurrenceDate, store.ErrDuplicateOccurrence)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repository) ExistsForOccurrence(ctx context.Context, templateID string, occurrence core.Date) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM transactions
		WHERE template_id = ? AND occurrence_date = ?`,
		templateID, occurrence.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check occurrence: %w", err)
	}
	return n > 0, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx             core.Transaction
		templateID     sql.NullString
		occurrenceDate sql.NullString
		txDate         string
		deletedFlag    int64
	)
	err := row.Scan(&tx.ID, &templateID, &occurrenceDate, &tx.OwnerID,
		&tx.AccountID, &tx.CategoryID, &tx.Kind, &tx.Amount.Cents,
		&tx.Description, &txDate, &deletedFlag)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.TemplateID = templateID.String
	if tx.OccurrenceDate, err = parseNullDate(occurrenceDate); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurrence date %q: %w", occurrenceDate.String, err)
	}
	if tx.Date, err = core.ParseDate(txDate); err != nil {
		return core.Transaction{}, fmt.Errorf("parse tx date %q: %w", txDate, err)
	}
	tx.Deleted = deletedFlag != 0
	return tx, nil
}

const transactionColumns = `id, template_id, occurrence_date, owner_id,
	account_id, category_id, kind, amount_cents, description, tx_date, deleted`

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, kind = ?, amount_cents = ?,
		    description = ?, tx_date = ?, deleted = ?
		WHERE id = ?`,
		tx.AccountID, tx.CategoryID, string(tx.Kind), tx.Amount.Cents,
		tx.Description, tx.Date.String(), tx.Deleted, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction", tx.ID)
}

func (r *Repository) SoftDeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	return requireRow(res, "transaction", id)
}

func (r *Repository) SumByCategoryAndRange(ctx context.Context, categoryID string, start, end core.Date) (int64, error) {
	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM transactions
		WHERE category_id = ? AND deleted = 0 AND tx_date >= ? AND tx_date <= ?`,
		categoryID, start.String(), end.String()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum by category and range: %w", err)
	}
	return sum.Int64, nil
}

func (r *Repository) ListByTemplate(ctx context.Context, templateID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE template_id = ? ORDER BY occurrence_date`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list by template: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListBudgetsByCategory implements store.BudgetStore.
func (r *Repository) ListBudgetsByCategory(ctx context.Context, categoryID string) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, category_id, period_start, period_end,
		       allocated_cents, spent_cents
		FROM category_budgets
		WHERE category_id = ?
		ORDER BY period_start`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list budgets by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryBudget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row rowScanner) (core.CategoryBudget, error) {
	var (
		b          core.CategoryBudget
		start, end string
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &start, &end,
		&b.Allocated.Cents, &b.Spent.Cents)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	if b.PeriodStart, err = core.ParseDate(start); err != nil {
		return core.CategoryBudget{}, fmt.Errorf("parse period start %q: %w", start, err)
	}
	if b.PeriodEnd, err = core.ParseDate(end); err != nil {
		return core.CategoryBudget{}, fmt.Errorf("parse period end %q: %w", end, err)
	}
	return b, nil
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.CategoryBudget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, category_id, period_start, period_end,
		       allocated_cents, spent_cents
		FROM category_budgets
		WHERE id = ?`, id)

	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryBudget{}, fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.CategoryBudget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_budgets (id, owner_id, category_id, period_start,
		                              period_end, allocated_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.CategoryID, b.PeriodStart.String(), b.PeriodEnd.String(),
		b.Allocated.Cents, b.Spent.Cents)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *Repository) UpdateBudgetSpent(ctx context.Context, id string, spentCents int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE category_budgets
		SET spent_cents = ?, updated_at = datetime('now')
		WHERE id = ?`, spentCents, id)
	if err != nil {
		return fmt.Errorf("update budget spent: %w", err)
	}
	return requireRow(res, "budget", id)
}
