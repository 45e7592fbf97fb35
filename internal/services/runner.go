package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rata/internal/core"
	"rata/internal/store"
)

// TemplateResult is the per-template outcome of one scheduler run.
type TemplateResult struct {
	TemplateID string
	Outcome    Outcome
	Created    int // transactions materialized this run
	Err        error
}

// Runner orchestrates one scheduling pass: load active templates, project
// what is due, materialize, reconcile. Different templates may be
// processed in parallel, but each template is owned by a single goroutine
// per run, which serializes all operations on its occurrences; across
// processes the storage uniqueness constraint is the guard.
type Runner struct {
	templates    store.TemplateStore
	projector    *Projector
	materializer *Materializer
	parallelism  int
}

func NewRunner(templates store.TemplateStore, projector *Projector, materializer *Materializer, parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{
		templates:    templates,
		projector:    projector,
		materializer: materializer,
		parallelism:  parallelism,
	}
}

// RunOnce processes every active template as of the given date. One bad
// template never blocks the others; its failure is recorded in the result
// list and the run continues. Re-running with the same asOf creates no
// additional transactions.
//
// The returned error is non-nil only when the run as a whole could not
// proceed (loading templates failed or the context was cancelled).
func (r *Runner) RunOnce(ctx context.Context, asOf core.Date) ([]TemplateResult, error) {
	templates, err := r.templates.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}

	slog.InfoContext(ctx, "Scheduler run started",
		"as_of", asOf.String(),
		"active_templates", len(templates),
		"parallelism", r.parallelism)

	results := make([]TemplateResult, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, tpl := range templates {
		i, tpl := i, tpl
		g.Go(func() error {
			// A cancelled run stops cleanly between templates; each
			// template's materialize+reconcile pair has already either
			// fully completed or not started.
			if err := gctx.Err(); err != nil {
				results[i] = TemplateResult{TemplateID: tpl.ID, Outcome: OutcomeSkipped, Err: err}
				return err
			}
			results[i] = r.processTemplate(gctx, tpl, asOf)
			return nil
		})
	}
	runErr := g.Wait()

	var created, failed int
	for _, res := range results {
		created += res.Created
		if res.Outcome == OutcomeFailed {
			failed++
		}
	}
	slog.InfoContext(ctx, "Scheduler run complete",
		"as_of", asOf.String(),
		"templates_checked", len(templates),
		"transactions_created", created,
		"templates_failed", failed)

	return results, runErr
}

// processTemplate drains all due occurrences of one template, oldest
// first, so a run catches up a template that has been behind for several
// periods.
func (r *Runner) processTemplate(ctx context.Context, tpl core.Template, asOf core.Date) TemplateResult {
	res := TemplateResult{TemplateID: tpl.ID, Outcome: OutcomeSkipped}

	for {
		due, ok, err := r.projector.NextDue(ctx, tpl, asOf)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to project next due occurrence",
				"template_id", tpl.ID,
				"error", err)
			res.Outcome = OutcomeFailed
			res.Err = err
			return res
		}
		if !ok {
			return res
		}

		_, outcome, err := r.materializer.Materialize(ctx, tpl, due)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize occurrence",
				"template_id", tpl.ID,
				"occurrence_date", due.String(),
				"error", err)
			res.Outcome = OutcomeFailed
			res.Err = err
			return res
		}

		switch outcome {
		case OutcomeCreated:
			res.Created++
			res.Outcome = OutcomeCreated
		case OutcomeAlreadyExists:
			if res.Outcome != OutcomeCreated {
				res.Outcome = OutcomeAlreadyExists
			}
		}
	}
}
