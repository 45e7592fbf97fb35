// Package memory is a mutex-guarded in-memory implementation of the store
// ports. It backs the memory data backend and doubles as the test
// substitute for SQLite; it enforces the same (template, occurrence date)
// uniqueness contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rata/internal/core"
	"rata/internal/store"
)

type Store struct {
	mu           sync.Mutex
	templates    map[string]core.Template
	transactions map[string]core.Transaction
	budgets      map[string]core.CategoryBudget
	occurrences  map[string]string // occurrence key -> transaction id
}

func New() *Store {
	return &Store{
		templates:    make(map[string]core.Template),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.CategoryBudget),
		occurrences:  make(map[string]string),
	}
}

func occurrenceKey(templateID string, d core.Date) string {
	return templateID + "|" + d.String()
}

// ListActive implements store.TemplateStore.
func (s *Store) ListActive(_ context.Context) ([]core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Template
	for _, tpl := range s.templates {
		if tpl.Active {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	if !ok {
		return core.Template{}, fmt.Errorf("template %s: %w", id, store.ErrNotFound)
	}
	return tpl, nil
}

func (s *Store) CreateTemplate(_ context.Context, tpl core.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[tpl.ID]; ok {
		return fmt.Errorf("template %s already exists", tpl.ID)
	}
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *Store) UpdateTemplate(_ context.Context, tpl core.Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[tpl.ID]; !ok {
		return fmt.Errorf("template %s: %w", tpl.ID, store.ErrNotFound)
	}
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *Store) SetTemplateActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	if !ok {
		return fmt.Errorf("template %s: %w", id, store.ErrNotFound)
	}
	tpl.Active = active
	s.templates[id] = tpl
	return nil
}

// InsertTransaction implements store.TransactionStore.
func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	if tx.TemplateID != "" {
		key := occurrenceKey(tx.TemplateID, tx.OccurrenceDate)
		if _, taken := s.occurrences[key]; taken {
			return fmt.Errorf("template %s occurrence %s: %w",
				tx.TemplateID, tx.OccurrenceDate, store.ErrDuplicateOccurrence)
		}
		s.occurrences[key] = tx.ID
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) ExistsForOccurrence(_ context.Context, templateID string, occurrence core.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.occurrences[occurrenceKey(templateID, occurrence)]
	return ok, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, store.ErrNotFound)
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	tx.Deleted = true
	s.transactions[id] = tx
	return nil
}

func (s *Store) SumByCategoryAndRange(_ context.Context, categoryID string, start, end core.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, tx := range s.transactions {
		if tx.Deleted || tx.CategoryID != categoryID {
			continue
		}
		if tx.Date.Before(start.Time) || tx.Date.After(end.Time) {
			continue
		}
		sum += tx.Amount.Cents
	}
	return sum, nil
}

func (s *Store) ListByTemplate(_ context.Context, templateID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.TemplateID == templateID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurrenceDate.Before(out[j].OccurrenceDate.Time)
	})
	return out, nil
}

// ListBudgetsByCategory implements store.BudgetStore.
func (s *Store) ListBudgetsByCategory(_ context.Context, categoryID string) ([]core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryBudget
	for _, b := range s.budgets {
		if b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.CategoryBudget{}, fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	return b, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.CategoryBudget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; ok {
		return fmt.Errorf("budget %s already exists", b.ID)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) UpdateBudgetSpent(_ context.Context, id string, spentCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	b.Spent = core.Money{Cents: spentCents}
	s.budgets[id] = b
	return nil
}
