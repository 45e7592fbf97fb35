package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"rata/internal/backend"
	"rata/internal/config"
	"rata/internal/core"
	"rata/internal/log"
	"rata/internal/services"
)

// rata-run executes a single scheduling pass and exits. The as-of date is
// explicit so a missed day can be replayed and the result inspected.
func main() {
	asOfFlag := flag.String("as-of", "", "run the pass as of this date (YYYY-MM-DD, default today)")
	flag.Parse()

	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     slog.LevelWarn,
		Component: log.ComponentScheduler,
	})
	log.SetDefault(logger)

	asOf := core.DateOf(time.Now())
	if *asOfFlag != "" {
		parsed, err := core.ParseDate(*asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of date %q: %v\n", *asOfFlag, err)
			os.Exit(2)
		}
		asOf = parsed
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize data backend: %v\n", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}
	store := result.Backend

	projector := services.NewProjector(store)
	reconciler := services.NewReconciler(store, store)
	materializer := services.NewMaterializer(store, reconciler, nil)
	runner := services.NewRunner(store, projector, materializer, cfg.RunParallelism)

	results, err := runner.RunOnce(ctx, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduling pass failed: %v\n", err)
		os.Exit(1)
	}

	var created, failed int
	for _, res := range results {
		created += res.Created
		switch {
		case res.Outcome == services.OutcomeFailed:
			failed++
			fmt.Printf("%-36s  failed: %v\n", res.TemplateID, res.Err)
		case res.Created > 0:
			fmt.Printf("%-36s  created %d\n", res.TemplateID, res.Created)
		default:
			fmt.Printf("%-36s  up to date\n", res.TemplateID)
		}
	}
	fmt.Printf("\n%d template(s) checked, %d transaction(s) created, %d failure(s)\n",
		len(results), created, failed)

	if failed > 0 {
		os.Exit(1)
	}
}
