// Package verify reports how much content landed in the store during a time
// window and checks those counts against what an ingestion run wrote.
//
// Verification is read-only and advisory: it never changes stored rows and
// its result does not change the outcome of the run it checks.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// ErrInvalidWindow is returned when a window ends before it starts.
var ErrInvalidWindow = errors.New("invalid time window")

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Today returns the local calendar day containing the current time.
func Today() Window {
	return DayOf(time.Now())
}

// DayOf returns the calendar day containing t, in t's location.
func DayOf(t time.Time) Window {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Since returns the window covering the last d up to and including now.
func Since(now time.Time, d time.Duration) Window {
	return Window{Start: now.Add(-d), End: now.Add(time.Microsecond)}
}

// RunWindow returns the window spanned by a run. Stores keep microsecond
// precision, so the bounds are widened to whole microseconds.
func RunWindow(run *core.IngestionRun) Window {
	return Window{
		Start: run.StartedAt.Truncate(time.Microsecond),
		End:   run.FinishedAt.Truncate(time.Microsecond).Add(time.Microsecond),
	}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Verifier reads aggregate counts from the store.
type Verifier struct {
	stats  storage.StatsRepository
	logger *slog.Logger
}

// New creates a Verifier.
func New(stats storage.StatsRepository, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		stats:  stats,
		logger: logger.With("component", "verifier"),
	}
}

// Counts returns the number of textbooks processed, and chapters and chunks
// created, inside w.
func (v *Verifier) Counts(ctx context.Context, w Window) (*core.Counts, error) {
	if w.End.Before(w.Start) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	counts, err := v.stats.CountProcessed(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("count rows in %s: %w", w, err)
	}
	v.logger.Debug("counted", "window", w.String(), "textbooks", counts.Textbooks,
		"chapters", counts.Chapters, "chunks", counts.Chunks)
	return counts, nil
}

// Reconciliation compares expected counts with what the store holds.
type Reconciliation struct {
	Window     Window
	Expected   core.Counts
	Actual     core.Counts
	Shortfalls []string
}

// Consistent reports whether every expected row was found.
func (r *Reconciliation) Consistent() bool {
	return len(r.Shortfalls) == 0
}

// Reconcile counts rows in w and compares them with expected. Rows written by
// other runs in the same window can only raise the actual counts, so only
// shortfalls are reported.
func (v *Verifier) Reconcile(ctx context.Context, w Window, expected core.Counts) (*Reconciliation, error) {
	actual, err := v.Counts(ctx, w)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{Window: w, Expected: expected, Actual: *actual}
	check := func(kind string, want, got int) {
		if got < want {
			r.Shortfalls = append(r.Shortfalls, fmt.Sprintf("%s: expected at least %d, found %d", kind, want, got))
		}
	}
	check("textbooks", expected.Textbooks, actual.Textbooks)
	check("chapters", expected.Chapters, actual.Chapters)
	check("chunks", expected.Chunks, actual.Chunks)

	if !r.Consistent() {
		v.logger.Warn("counts below expectation", "window", w.String(), "shortfalls", r.Shortfalls)
	}
	return r, nil
}

// ExpectedCounts derives the rows a run should have left in the store.
// Textbooks are counted once per ID. In replace mode only the last committed
// document of each textbook keeps its chapters and chunks; with parallel
// ingestion that is the latest CommittedAt, not the last in input order.
func ExpectedCounts(run *core.IngestionRun, mode core.ReloadMode) core.Counts {
	var counts core.Counts
	last := make(map[core.ID]core.DocumentOutcome)
	var order []core.ID

	for _, o := range run.Outcomes {
		if !o.Succeeded() {
			continue
		}
		prev, seen := last[o.TextbookId]
		if !seen {
			order = append(order, o.TextbookId)
		}
		if mode != core.ReloadReplace {
			counts.Chapters += o.Chapters
			counts.Chunks += o.Chunks
		}
		// Equal times, including reports without commit times, fall back to input order.
		if !seen || !o.CommittedAt.Before(prev.CommittedAt) {
			last[o.TextbookId] = o
		}
	}

	counts.Textbooks = len(order)
	if mode == core.ReloadReplace {
		for _, id := range order {
			counts.Chapters += last[id].Chapters
			counts.Chunks += last[id].Chunks
		}
	}
	return counts
}
