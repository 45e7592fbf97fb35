package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"rata/internal/amqp"
	"rata/internal/core"
	"rata/internal/store"
)

// Outcome classifies the result of processing a template or occurrence.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

// Materializer converts a due occurrence into a concrete transaction,
// guaranteeing at most one transaction per (template, occurrence date)
// pair. The check-then-insert pair can race with another writer; the
// storage uniqueness constraint resolves it and the loser reports
// OutcomeAlreadyExists, which callers treat as success.
type Materializer struct {
	transactions store.TransactionStore
	reconciler   *Reconciler
	events       *amqp.Client
}

// NewMaterializer creates a materializer. events may be nil; publishing is
// then skipped.
func NewMaterializer(transactions store.TransactionStore, reconciler *Reconciler, events *amqp.Client) *Materializer {
	return &Materializer{
		transactions: transactions,
		reconciler:   reconciler,
		events:       events,
	}
}

// Materialize creates the transaction for one occurrence of a template.
// Amount, category, account, kind, and description are copied from the
// template at this moment; later template edits never rewrite the created
// transaction.
func (m *Materializer) Materialize(ctx context.Context, tpl core.Template, occurrence core.Date) (core.Transaction, Outcome, error) {
	exists, err := m.transactions.ExistsForOccurrence(ctx, tpl.ID, occurrence)
	if err != nil {
		return core.Transaction{}, OutcomeFailed, fmt.Errorf("check occurrence: %w", err)
	}
	if exists {
		return core.Transaction{}, OutcomeAlreadyExists, nil
	}

	tx := core.Transaction{
		ID:             uuid.NewString(),
		TemplateID:     tpl.ID,
		OccurrenceDate: occurrence,
		OwnerID:        tpl.OwnerID,
		AccountID:      tpl.AccountID,
		CategoryID:     tpl.CategoryID,
		Kind:           tpl.Kind,
		Amount:         core.Money{Cents: tpl.Kind.Sign() * tpl.Amount.Cents},
		Description:    tpl.Description,
		Date:           occurrence,
	}

	if err := m.transactions.InsertTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateOccurrence) {
			// A concurrent run won the insert; same end state.
			slog.InfoContext(ctx, "Occurrence already materialized by concurrent writer",
				"template_id", tpl.ID,
				"occurrence_date", occurrence.String())
			return core.Transaction{}, OutcomeAlreadyExists, nil
		}
		return core.Transaction{}, OutcomeFailed, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Materialized transaction from template",
		"template_id", tpl.ID,
		"transaction_id", tx.ID,
		"occurrence_date", occurrence.String(),
		"amount_cents", tx.Amount.Cents,
		"category_id", tx.CategoryID)

	// The transaction is committed; an under-reconciled budget is
	// preferable to a lost transaction, and reconciliation is idempotent
	// to re-run.
	if err := m.reconciler.OnTransactionPosted(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Budget reconciliation failed after materialization",
			"template_id", tpl.ID,
			"transaction_id", tx.ID,
			"error", err)
	}

	m.publishEvent(ctx, tx.ID, amqp.EventPosted)

	return tx, OutcomeCreated, nil
}

func (m *Materializer) publishEvent(ctx context.Context, transactionID, event string) {
	if m.events == nil {
		return
	}
	msg := amqp.NewTransactionEventMessage(transactionID, event)
	if err := m.events.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", transactionID,
			"event", event,
			"error", err)
	}
}
