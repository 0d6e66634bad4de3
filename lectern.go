// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package lectern stores parsed textbooks as a textbook → chapter → content
// chunk hierarchy and verifies what was stored.
//
// A Library opens the configured backend and hands out ready-wired
// components:
//
//	lib, err := lectern.Open(ctx, config.NewConfig(config.WithBadgerPath("data")))
//	if err != nil { ... }
//	defer lib.Close()
//
//	ing, err := lib.NewIngestor()
//	if err != nil { ... }
//	defer ing.Release()
//	run, err := ing.Ingest(ctx, docs)
package lectern

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/storage/badger"
	"github.com/poiesic/lectern/storage/postgres"
	"github.com/poiesic/lectern/tokenizer"
	"github.com/poiesic/lectern/verify"
)

// Library is an open store plus the configuration used to wire components
// on top of it.
type Library struct {
	cfg       *config.Config
	textbooks storage.TextbookRepository
	chapters  storage.ChapterRepository
	chunks    storage.ChunkRepository
	stats     storage.StatsRepository
	runs      storage.RunRepository
	migrate   func(ctx context.Context) error
	close     func() error
	logger    *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the store and every component.
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// Open validates cfg and opens its backend.
func Open(ctx context.Context, cfg *config.Config, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lib := &Library{cfg: cfg, logger: options.logger}
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL,
			postgres.WithLogger(options.logger),
			postgres.WithConnectTimeout(cfg.ConnectTimeout),
			// one connection per worker plus headroom for the run report
			postgres.WithMaxConns(cfg.Concurrency+2),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		lib.textbooks, lib.chapters, lib.chunks = store, store, store
		lib.stats, lib.runs = store, store
		lib.migrate = store.Migrate
		lib.close = store.Close
	default:
		store, err := badger.Open(cfg.BadgerPath, cfg.InMemory,
			badger.WithMemTableSize(int64(cfg.BadgerMemTableMB)<<20),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		lib.textbooks, lib.chapters, lib.chunks = store.Textbooks, store.Chapters, store.Chunks
		lib.stats, lib.runs = store.Stats, store.Runs
		lib.migrate = func(context.Context) error { return nil }
		lib.close = store.Close
	}

	lib.logger.Debug("library opened", "backend", cfg.Backend)
	return lib, nil
}

// Close closes the underlying store.
func (l *Library) Close() error {
	if err := l.close(); err != nil {
		l.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Migrate creates the relational schema. It is a no-op for the embedded store.
func (l *Library) Migrate(ctx context.Context) error {
	return l.migrate(ctx)
}

// Runs returns the store of batch reports.
func (l *Library) Runs() storage.RunRepository {
	return l.runs
}

// NewIngestor creates an ingestor configured from the library's config. The
// caller's options are applied after the configured ones and win over them.
// The caller must call Release on the returned ingestor.
func (l *Library) NewIngestor(opts ...ingestion.Option) (*ingestion.Ingestor, error) {
	base := []ingestion.Option{
		ingestion.WithLogger(l.logger),
		ingestion.WithConcurrency(l.cfg.Concurrency),
		ingestion.WithReloadMode(l.cfg.ReloadMode),
		ingestion.WithRetry(l.cfg.MaxRetries, l.cfg.RetryDelay),
		ingestion.WithRunRepository(l.runs),
		ingestion.WithTokenEstimator(tokenizer.ForModel(l.cfg.TokenModel)),
	}
	return ingestion.NewIngestor(l.textbooks, l.chapters, l.chunks, append(base, opts...)...)
}

// NewVerifier creates a verifier over the library's store.
func (l *Library) NewVerifier() *verify.Verifier {
	return verify.New(l.stats, l.logger)
}

// ReloadMode returns the configured reload mode.
func (l *Library) ReloadMode() core.ReloadMode {
	return l.cfg.ReloadMode
}

// SelectFailed returns the documents of docs whose file names failed or were
// skipped in run, in docs order. It is used to re-run only what did not land.
func SelectFailed(run *core.IngestionRun, docs []*core.Document) []*core.Document {
	retry := make(map[string]bool)
	for _, name := range run.FailedFileNames() {
		retry[name] = true
	}
	var selected []*core.Document
	for _, doc := range docs {
		if doc != nil && retry[doc.FileName] {
			selected = append(selected, doc)
		}
	}
	return selected
}
