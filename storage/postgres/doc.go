// Package postgres implements the storage repositories on PostgreSQL using pgx.
//
// A single Store satisfies every repository interface. Transactions opened
// with WithTransaction travel through the context, so all writes of one
// document share one database transaction. Integrity rules (unique file
// names, foreign keys with ON DELETE CASCADE, unique chunk index per chapter)
// are enforced by the schema that Migrate installs, and driver errors are
// translated into the storage sentinel errors.
package postgres
