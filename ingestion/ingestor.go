package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/tokenizer"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 50 * time.Millisecond
)

// Ingestor writes batches of documents, one transaction per document.
type Ingestor struct {
	store       storage.Repository
	textbooks   *TextbookWriter
	chapters    *ChapterWriter
	chunks      *ChunkWriter
	runs        storage.RunRepository
	pool        *ants.Pool
	locks       *keyedLock
	concurrency int
	reloadMode  core.ReloadMode
	maxAttempts int
	retryDelay  time.Duration
	estimator   tokenizer.Estimator
	progress    io.Writer
	progressN   int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingestor) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// WithConcurrency sets how many documents are written at the same time.
// Default is 1, which processes documents in input order.
func WithConcurrency(n int) Option {
	return func(i *Ingestor) error {
		if n < 1 {
			n = 1
		}
		i.concurrency = n
		return nil
	}
}

// WithReloadMode selects what happens to the chapters of a textbook that is
// ingested again. Default is core.ReloadAppend.
func WithReloadMode(mode core.ReloadMode) Option {
	return func(i *Ingestor) error {
		if mode != core.ReloadAppend && mode != core.ReloadReplace {
			return fmt.Errorf("%w: %q", core.ErrInvalidReloadMode, mode)
		}
		i.reloadMode = mode
		return nil
	}
}

// WithRetry sets how often a document is replayed after a transaction
// conflict, and the base delay between attempts.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(i *Ingestor) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			baseDelay = 0
		}
		i.maxAttempts = maxAttempts
		i.retryDelay = baseDelay
		return nil
	}
}

// WithRunRepository persists every batch report.
func WithRunRepository(runs storage.RunRepository) Option {
	return func(i *Ingestor) error {
		i.runs = runs
		return nil
	}
}

// WithTokenEstimator sets the estimator used for chunks without a token count.
func WithTokenEstimator(estimator tokenizer.Estimator) Option {
	return func(i *Ingestor) error {
		i.estimator = estimator
		return nil
	}
}

// WithProgress writes progress to w every interval documents.
func WithProgress(w io.Writer, interval int) Option {
	return func(i *Ingestor) error {
		i.progress = w
		i.progressN = interval
		return nil
	}
}

// WithClock overrides the time source for processed and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) error {
		if now == nil {
			now = time.Now
		}
		i.now = now
		return nil
	}
}

// NewIngestor creates an Ingestor over the three repositories. They must share
// one backend so that a document's writes join one transaction.
func NewIngestor(
	textbooks storage.TextbookRepository,
	chapters storage.ChapterRepository,
	chunks storage.ChunkRepository,
	opts ...Option,
) (*Ingestor, error) {
	if textbooks == nil {
		return nil, ErrTextbookRepositoryRequired
	}
	if chapters == nil {
		return nil, ErrChapterRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	i := &Ingestor{
		store:       textbooks,
		locks:       newKeyedLock(),
		concurrency: 1,
		reloadMode:  core.ReloadAppend,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}

	// Writers are built after options so they get the final configuration.
	i.textbooks = NewTextbookWriter(textbooks, i.logger)
	i.textbooks.now = i.now
	i.chapters = NewChapterWriter(chapters, i.logger)
	i.chunks = NewChunkWriter(chunks, i.estimator)

	if i.concurrency > 1 {
		pool, err := ants.NewPool(i.concurrency)
		if err != nil {
			return nil, err
		}
		i.pool = pool
	}

	return i, nil
}

// Release releases the worker pool.
// The ingestor should not be used after calling Release.
func (i *Ingestor) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}

// Ingest writes docs and returns the batch report, with one outcome per
// document in input order. A failing document is rolled back and recorded; it
// never stops the batch. When ctx is canceled, documents not yet started are
// reported as skipped and the context error is returned with the report.
func (i *Ingestor) Ingest(ctx context.Context, docs []*core.Document) (*core.IngestionRun, error) {
	run := &core.IngestionRun{
		ID:        uuid.NewString(),
		StartedAt: i.now().UTC(),
		Outcomes:  make([]core.DocumentOutcome, len(docs)),
	}
	for n, doc := range docs {
		run.Outcomes[n] = core.DocumentOutcome{FileName: fileNameOf(doc), State: core.DocumentSkipped}
	}

	logger := i.logger.With("run", run.ID)
	logger.Info("ingestion started", "documents", len(docs), "concurrency", i.concurrency, "reload", i.reloadMode)

	var tracker *ProgressTracker
	if i.progress != nil {
		tracker = NewProgressTracker(i.progress, len(docs), i.progressN)
		tracker.Start()
	}
	record := func(n int, outcome core.DocumentOutcome) {
		run.Outcomes[n] = outcome
		if tracker != nil {
			tracker.Increment(1)
		}
	}

	if i.pool == nil {
		for n, doc := range docs {
			if ctx.Err() != nil {
				break
			}
			record(n, i.ingestDocument(ctx, logger, doc))
		}
	} else {
		var wg sync.WaitGroup
		for n, doc := range docs {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			err := i.pool.Submit(func() {
				defer wg.Done()
				if ctx.Err() != nil {
					return
				}
				record(n, i.ingestDocument(ctx, logger, doc))
			})
			if err != nil {
				wg.Done()
				logger.Error("error submitting document", "file", fileNameOf(doc), "err", err)
				record(n, failed(core.DocumentOutcome{FileName: fileNameOf(doc)}, core.DocumentStart, err))
			}
		}
		wg.Wait()
	}

	run.FinishedAt = i.now().UTC()
	if tracker != nil {
		tracker.Finish()
	}
	logger.Info("ingestion finished",
		"succeeded", run.Succeeded(),
		"failed", run.Failed(),
		"skipped", run.Skipped(),
		"elapsed", run.FinishedAt.Sub(run.StartedAt))

	var saveErr error
	if i.runs != nil {
		// The report is saved even when ctx was canceled.
		if err := i.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Error("error saving run report", "err", err)
			saveErr = fmt.Errorf("save run %s: %w", run.ID, err)
		}
	}

	return run, errors.Join(ctx.Err(), saveErr)
}

// docProgress tracks how far one attempt at a document got.
type docProgress struct {
	state      core.DocumentState
	textbookID core.ID
	chapters   int
	chunks     int
}

// ingestDocument validates doc and writes it in one transaction, replaying
// the transaction on conflicts.
func (i *Ingestor) ingestDocument(ctx context.Context, logger *slog.Logger, doc *core.Document) core.DocumentOutcome {
	outcome := core.DocumentOutcome{FileName: fileNameOf(doc), State: core.DocumentStart}
	if err := core.ValidateDocument(doc); err != nil {
		logger.Warn("document rejected", "file", outcome.FileName, "err", err)
		return failed(outcome, core.DocumentStart, err)
	}

	unlock := i.locks.Lock(doc.FileName)
	defer unlock()
	if ctx.Err() != nil {
		// Canceled while another document with the same file name held the lock.
		return core.DocumentOutcome{FileName: outcome.FileName, State: core.DocumentSkipped}
	}
	logger.Debug("writing document", "file", doc.FileName, "chapters", len(doc.Chapters), "chunks", doc.ChunkCount())

	var p docProgress
	err := RetryWithBackoff(ctx, func() error {
		p = docProgress{state: core.DocumentStart}
		return i.writeDocument(ctx, doc, &p)
	}, i.maxAttempts, i.retryDelay, isRetryable)
	if err != nil {
		logger.Warn("document failed", "file", outcome.FileName, "stage", p.state, "err", err)
		return failed(outcome, p.state, err)
	}

	// Still under the file name lock, so commits of one textbook are ordered.
	outcome.CommittedAt = i.now().UTC()
	outcome.State = core.DocumentDone
	outcome.TextbookId = p.textbookID
	outcome.Chapters = p.chapters
	outcome.Chunks = p.chunks
	logger.Info("document ingested",
		"file", outcome.FileName,
		"textbook_id", outcome.TextbookId,
		"chapters", outcome.Chapters,
		"chunks", outcome.Chunks)
	return outcome
}

// writeDocument runs the textbook, chapter and chunk writers in order inside
// one transaction. Chunk indexes are positions within their chapter.
func (i *Ingestor) writeDocument(ctx context.Context, doc *core.Document, p *docProgress) error {
	return i.store.WithTransaction(ctx, func(ctx context.Context) error {
		textbookID, err := i.textbooks.Write(ctx, doc)
		if err != nil {
			return err
		}
		p.textbookID = textbookID
		p.state = core.DocumentTextbookWritten

		if i.reloadMode == core.ReloadReplace {
			if _, err := i.chapters.Purge(ctx, textbookID); err != nil {
				return err
			}
		}

		chapterIDs := make([]core.ID, len(doc.Chapters))
		for n, chapter := range doc.Chapters {
			id, err := i.chapters.Write(ctx, textbookID, chapter)
			if err != nil {
				return err
			}
			chapterIDs[n] = id
			p.chapters++
		}
		p.state = core.DocumentChaptersWritten

		for n, chapter := range doc.Chapters {
			for index, chunk := range chapter.Chunks {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := i.chunks.Write(ctx, chapterIDs[n], index, chunk); err != nil {
					return err
				}
				p.chunks++
			}
		}
		p.state = core.DocumentChunksWritten
		return nil
	})
}

func isRetryable(err error) bool {
	return errors.Is(err, storage.ErrTransactionFailed)
}

// failed marks outcome as rolled back after reaching stage.
func failed(outcome core.DocumentOutcome, stage core.DocumentState, err error) core.DocumentOutcome {
	outcome.State = core.DocumentFailed
	outcome.FailedAt = stage
	outcome.Error = err.Error()
	outcome.TextbookId = 0
	outcome.Chapters = 0
	outcome.Chunks = 0
	return outcome
}

func fileNameOf(doc *core.Document) string {
	if doc == nil {
		return ""
	}
	return doc.FileName
}
