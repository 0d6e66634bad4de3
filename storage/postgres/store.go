package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/lectern/storage"
)

const (
	defaultConnectTimeout = 30 * time.Second
)

// Store implements every storage repository on a pgx connection pool.
type Store struct {
	pool           *pgxpool.Pool
	logger         *slog.Logger
	connectTimeout time.Duration
	maxConns       int32
	closed         atomic.Bool
}

var (
	_ storage.TextbookRepository = (*Store)(nil)
	_ storage.ChapterRepository  = (*Store)(nil)
	_ storage.ChunkRepository    = (*Store)(nil)
	_ storage.StatsRepository    = (*Store)(nil)
	_ storage.RunRepository      = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithConnectTimeout bounds how long Open keeps retrying the first ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Store) error {
		if d <= 0 {
			return fmt.Errorf("connect timeout must be positive, got %v", d)
		}
		s.connectTimeout = d
		return nil
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return fmt.Errorf("max conns must be positive, got %d", n)
		}
		s.maxConns = int32(n)
		return nil
	}
}

// txKey carries the open pgx.Tx through WithTransaction callbacks.
type txKey struct{}

// querier is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Open connects to dsn and waits for the server with exponential backoff.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{
		logger:         slog.Default(),
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("backend", "postgres")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	if s.maxConns > 0 {
		config.MaxConns = s.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}
	s.pool = pool

	if err := s.pingWithRetry(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	s.logger.Info("connected", "host", config.ConnConfig.Host, "database", config.ConnConfig.Database)
	return s, nil
}

// pingWithRetry pings the server with exponential backoff.
// Initial interval 500ms, max interval 5s, max elapsed connectTimeout.
func (s *Store) pingWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 5 * time.Second
	exponentialBackoff.MaxElapsedTime = s.connectTimeout

	attempt := 0
	operation := func() error {
		attempt++
		err := s.pool.Ping(ctx)
		if err != nil {
			s.logger.Warn("ping failed", "attempt", attempt, "err", err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Close closes the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.pool.Close()
	}
	return nil
}

// WithTransaction runs fn in one database transaction. Nested calls join the
// outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return translateError(err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return translateError(tx.Commit(ctx))
}

// querier returns the transaction carried by ctx, or the pool.
func (s *Store) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// fromNullTime converts a scanned nullable timestamp.
func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
