package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poiesic/lectern/storage"
)

// SQLSTATE codes mapped onto storage errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translateError maps driver errors onto the storage sentinels, keeping the
// original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", storage.ErrForeignKey, err)
	case codeNotNullViolation, codeCheckViolation:
		return fmt.Errorf("%w: %w", storage.ErrConstraint, err)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	default:
		return err
	}
}
