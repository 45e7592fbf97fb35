package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"rata/internal/amqp"
	"rata/internal/core"
	"rata/internal/store"
)

// TransactionService handles manual transaction changes (post, edit,
// delete) and keeps the affected budgets reconciled. Materialized
// transactions go through the Materializer instead; this service is the
// path for user-entered ones.
type TransactionService struct {
	transactions store.TransactionStore
	reconciler   *Reconciler
	events       *amqp.Client
}

// NewTransactionService creates the service. events may be nil; event
// publishing is then skipped.
func NewTransactionService(transactions store.TransactionStore, reconciler *Reconciler, events *amqp.Client) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		reconciler:   reconciler,
		events:       events,
	}
}

// Post validates and stores a new transaction, then reconciles the
// budgets covering it. Reconciliation failures are logged, not returned:
// the transaction is already committed and reconciliation is idempotent
// to retry.
func (s *TransactionService) Post(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.transactions.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("post transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction posted",
		"transaction_id", tx.ID,
		"category_id", tx.CategoryID,
		"amount_cents", tx.Amount.Cents,
		"tx_date", tx.Date.String())

	if err := s.reconciler.OnTransactionPosted(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Budget reconciliation failed after post",
			"transaction_id", tx.ID,
			"error", err)
	}

	s.publishEvent(ctx, tx.ID, amqp.EventPosted)
	return tx, nil
}

// Edit replaces the mutable fields of a transaction and reconciles both
// the budgets it left and the ones it entered.
func (s *TransactionService) Edit(ctx context.Context, updated core.Transaction) error {
	if err := updated.Validate(); err != nil {
		return err
	}

	old, err := s.transactions.GetTransaction(ctx, updated.ID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", updated.ID, err)
	}

	if err := s.transactions.UpdateTransaction(ctx, updated); err != nil {
		return fmt.Errorf("update transaction %s: %w", updated.ID, err)
	}

	slog.InfoContext(ctx, "Transaction edited",
		"transaction_id", updated.ID,
		"old_category_id", old.CategoryID,
		"new_category_id", updated.CategoryID,
		"old_amount_cents", old.Amount.Cents,
		"new_amount_cents", updated.Amount.Cents)

	if err := s.reconciler.OnTransactionEdited(ctx, old, updated); err != nil {
		slog.ErrorContext(ctx, "Budget reconciliation failed after edit",
			"transaction_id", updated.ID,
			"error", err)
	}

	s.publishEvent(ctx, updated.ID, amqp.EventUpdated)
	return nil
}

// Delete soft-deletes a transaction and reconciles the budgets it was
// counted in. The row is kept so a materialized occurrence stays claimed
// and is never re-created by a later scheduler run.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	old, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	if err := s.transactions.SoftDeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"category_id", old.CategoryID)

	if err := s.reconciler.OnTransactionDeleted(ctx, old); err != nil {
		slog.ErrorContext(ctx, "Budget reconciliation failed after delete",
			"transaction_id", id,
			"error", err)
	}

	s.publishEvent(ctx, id, amqp.EventDeleted)
	return nil
}

func (s *TransactionService) publishEvent(ctx context.Context, transactionID, event string) {
	if s.events == nil {
		return
	}
	msg := amqp.NewTransactionEventMessage(transactionID, event)
	if err := s.events.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", transactionID,
			"event", event,
			"error", err)
	}
}
