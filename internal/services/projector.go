// Package services implements the recurring transaction scheduling engine:
// projecting due occurrences, materializing them into transactions, and
// reconciling budget spent totals.
package services

import (
	"context"
	"fmt"

	"rata/internal/calendar"
	"rata/internal/core"
	"rata/internal/store"
)

// Projector decides which occurrence of a template, if any, is due for
// materialization as of a given date. "Now" is always an explicit
// parameter so runs are deterministic and replayable.
type Projector struct {
	transactions store.TransactionStore
}

func NewProjector(transactions store.TransactionStore) *Projector {
	return &Projector{transactions: transactions}
}

// NextDue returns the earliest occurrence of the template that is on or
// before asOf and not yet materialized. The second return is false when
// nothing is due: the template is paused or expired, starts in the
// future, or every occurrence up to asOf is already materialized.
//
// An end date equal to an occurrence date still yields that occurrence;
// the boundary is inclusive.
func (p *Projector) NextDue(ctx context.Context, tpl core.Template, asOf core.Date) (core.Date, bool, error) {
	if tpl.StateAt(asOf) != core.StateActive {
		return core.Date{}, false, nil
	}
	if tpl.StartDate.After(asOf.Time) {
		return core.Date{}, false, nil
	}

	seq, err := calendar.OccurrencesBetween(tpl.StartDate, tpl.Frequency, tpl.EndDate, tpl.StartDate, asOf)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("project occurrences for template %s: %w", tpl.ID, err)
	}

	for {
		occurrence, ok := seq.Next()
		if !ok {
			return core.Date{}, false, nil
		}
		exists, err := p.transactions.ExistsForOccurrence(ctx, tpl.ID, occurrence)
		if err != nil {
			return core.Date{}, false, fmt.Errorf("check occurrence %s for template %s: %w", occurrence, tpl.ID, err)
		}
		if !exists {
			return occurrence, true, nil
		}
	}
}
