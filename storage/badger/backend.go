package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/lectern/storage"
)

const (
	defaultSequenceBandwidth = 100

	// DefaultMemTableSize is the memtable size OpenBackend uses unless
	// WithMemTableSize overrides it. Badger caps one transaction at 15% of the
	// memtable and every document is written in one transaction, so this
	// bounds a document at roughly 19MB of stored records.
	DefaultMemTableSize int64 = 128 << 20
)

// BackendOption configures the badger options used by OpenBackend.
type BackendOption func(*badger.Options) error

// WithMemTableSize sets the memtable size in bytes, which bounds the size of
// a single transaction. The value threshold is lowered when it would exceed
// the resulting batch size.
func WithMemTableSize(size int64) BackendOption {
	return func(o *badger.Options) error {
		if size <= 0 {
			return fmt.Errorf("memtable size must be positive, got %d", size)
		}
		*o = o.WithMemTableSize(size)
		if maxBatch := size * 15 / 100; o.ValueThreshold > maxBatch {
			*o = o.WithValueThreshold(maxBatch)
		}
		return nil
	}
}

// txKey carries the open transaction through the context handed to
// WithTransaction callbacks.
type txKey struct{}

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.Repository = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, backendOpts ...BackendOption) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("backend", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None
	for _, opt := range append([]BackendOption{WithMemTableSize(DefaultMemTableSize)}, backendOpts...) {
		if err := opt(&opts); err != nil {
			return nil, err
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// WithTransaction executes fn within a read-write transaction that every
// repository sharing this backend joins through ctx. A nested call joins the
// outer transaction. Commit conflicts are reported as storage.ErrTransactionFailed.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	if err := b.checkOpen(ctx); err != nil {
		return err
	}

	tx := b.db.NewTransaction(true)
	defer tx.Discard()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return b.commit(tx)
}

// withTx runs fn in the transaction carried by ctx, or in a new one.
// A new read-write transaction is committed when fn succeeds.
func (b *Backend) withTx(ctx context.Context, fn func(tx *badger.Txn) error, isWrite bool) error {
	if tx, ok := txFromContext(ctx); ok {
		return translateTxnError(fn(tx))
	}
	if err := b.checkOpen(ctx); err != nil {
		return err
	}

	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return translateTxnError(err)
	}
	if !isWrite {
		return nil
	}
	return b.commit(tx)
}

func (b *Backend) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

func (b *Backend) commit(tx *badger.Txn) error {
	err := tx.Commit()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		b.logger.Debug("transaction conflict", "err", err)
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	case errors.Is(err, badger.ErrDBClosed):
		return storage.ErrStorageClosed
	default:
		return translateTxnError(err)
	}
}

// translateTxnError maps badger's per-transaction size limit onto
// storage.ErrTransactionTooLarge.
func translateTxnError(err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) && !errors.Is(err, storage.ErrTransactionTooLarge) {
		return fmt.Errorf("%w (raise the badger memtable size): %w", storage.ErrTransactionTooLarge, err)
	}
	return err
}

func txFromContext(ctx context.Context) (*badger.Txn, bool) {
	tx, ok := ctx.Value(txKey{}).(*badger.Txn)
	return tx, ok && tx != nil
}

// nextID draws the next non-zero value from seq.
func nextID(seq *badger.Sequence) (uint64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		return seq.Next()
	}
	return id, nil
}

// now returns the current time at the precision the serializers keep.
func now() time.Time {
	return toMicros(time.Now())
}

func toMicros(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

// exists reports whether key is present in tx.
func exists(tx *badger.Txn, key []byte) (bool, error) {
	_, err := tx.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// readValue loads key and decodes it with unmarshal.
// Returns storage.ErrNotFound when the key is missing.
func readValue[T any](tx *badger.Txn, key []byte, unmarshal func([]byte) (T, error)) (T, error) {
	var result T
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return result, storage.ErrNotFound
		}
		return result, err
	}
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		result, unmarshalErr = unmarshal(val)
		return unmarshalErr
	})
	return result, err
}

// collectKeys returns copies of every key under prefix.
func collectKeys(tx *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}

// countRange counts keys k with from <= k < to that share prefix.
func countRange(tx *badger.Txn, prefix, from, to []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Seek(from); iter.Valid(); iter.Next() {
		if string(iter.Item().Key()) >= string(to) {
			break
		}
		count++
	}
	return count
}
