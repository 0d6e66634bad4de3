package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/poiesic/lectern"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/manifest"
	"github.com/poiesic/lectern/verify"
	"github.com/urfave/cli/v2"
)

func migrateCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(ctx, c)
	if err != nil {
		return err
	}
	defer lib.Close()

	if err := lib.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "schema is up to date")
	return nil
}

// ingestOptions maps the ingest flags the user set onto config options.
// Unset flags leave the environment and defaults in place.
func ingestOptions(c *cli.Context) []config.ConfigOption {
	var opts []config.ConfigOption
	if c.IsSet("concurrency") {
		opts = append(opts, config.WithConcurrency(c.Int("concurrency")))
	}
	if c.IsSet("reload") {
		opts = append(opts, config.WithReloadMode(core.ReloadMode(c.String("reload"))))
	}
	if c.IsSet("max-retries") {
		opts = append(opts, config.WithMaxRetries(c.Int("max-retries")))
	}
	if c.IsSet("retry-delay") {
		opts = append(opts, config.WithRetryDelay(c.Duration("retry-delay")))
	}
	if c.IsSet("token-model") {
		opts = append(opts, config.WithTokenModel(c.String("token-model")))
	}
	return opts
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	docs, err := manifest.LoadAll(c.StringSlice("manifest"))
	if err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}

	lib, err := openLibrary(ctx, c, ingestOptions(c)...)
	if err != nil {
		return err
	}
	defer lib.Close()

	if id := c.String("retry-run"); id != "" {
		prev, err := lib.Runs().LoadRun(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", id, err)
		}
		docs = lectern.SelectFailed(prev, docs)
		if len(docs) == 0 {
			fmt.Fprintf(c.App.Writer, "Nothing to retry from run %s\n", id)
			return nil
		}
	}

	ing, err := lib.NewIngestor(ingestion.WithProgress(os.Stderr, c.Int("report-interval")))
	if err != nil {
		return fmt.Errorf("failed to create ingestor: %w", err)
	}
	defer ing.Release()

	run, ingestErr := ing.Ingest(ctx, docs)
	if run != nil {
		printRun(c.App.Writer, run)
	}
	if ingestErr != nil {
		return fmt.Errorf("ingestion interrupted: %w", ingestErr)
	}

	if c.Bool("verify") {
		expected := verify.ExpectedCounts(run, lib.ReloadMode())
		r, err := lib.NewVerifier().Reconcile(ctx, verify.RunWindow(run), expected)
		if err != nil {
			// Verification is advisory; the run's outcome decides the exit status.
			slog.Error("verification failed", "run", run.ID, "err", err)
		} else {
			printReconciliation(c.App.Writer, r)
		}
	}

	if n := run.Failed() + run.Skipped(); n > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents were not ingested; rerun with --retry-run %s", n, len(run.Outcomes), run.ID), 1)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx := context.Background()

	window := verify.Today()
	if c.IsSet("since") {
		if c.Duration("since") <= 0 {
			return fmt.Errorf("since must be positive")
		}
		window = verify.Since(time.Now(), c.Duration("since"))
	}

	lib, err := openLibrary(ctx, c)
	if err != nil {
		return err
	}
	defer lib.Close()

	counts, err := lib.NewVerifier().Counts(ctx, window)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Window:    %s\n", window)
	printCounts(c.App.Writer, counts)
	return nil
}

func runsCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(ctx, c)
	if err != nil {
		return err
	}
	defer lib.Close()

	var run *core.IngestionRun
	if id := c.String("id"); id != "" {
		run, err = lib.Runs().LoadRun(ctx, id)
	} else {
		run, err = lib.Runs().LatestRun(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	printRun(c.App.Writer, run)
	return nil
}

func printRun(w io.Writer, run *core.IngestionRun) {
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Documents: %d done, %d failed, %d skipped\n", run.Succeeded(), run.Failed(), run.Skipped())
	fmt.Fprintln(w)

	for _, o := range run.Outcomes {
		switch o.State {
		case core.DocumentDone:
			fmt.Fprintf(w, "  done     %s (textbook %d, %d chapters, %d chunks)\n", o.FileName, o.TextbookId, o.Chapters, o.Chunks)
		case core.DocumentFailed:
			fmt.Fprintf(w, "  failed   %s after %s: %s\n", o.FileName, o.FailedAt, o.Error)
		default:
			fmt.Fprintf(w, "  %-8s %s\n", o.State, o.FileName)
		}
	}
}

func printCounts(w io.Writer, counts *core.Counts) {
	fmt.Fprintf(w, "Textbooks: %d\n", counts.Textbooks)
	fmt.Fprintf(w, "Chapters:  %d\n", counts.Chapters)
	fmt.Fprintf(w, "Chunks:    %d\n", counts.Chunks)
}

func printReconciliation(w io.Writer, r *verify.Reconciliation) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Verified %s\n", r.Window)
	printCounts(w, &r.Actual)
	if r.Consistent() {
		fmt.Fprintln(w, "All committed rows are present")
		return
	}
	for _, s := range r.Shortfalls {
		fmt.Fprintf(w, "  missing  %s\n", s)
	}
}
