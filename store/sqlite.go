package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ryhazerus/anystore"
	_ "modernc.org/sqlite"
)

const sqliteBackend = "sqlite"

// Compile-time interface check.
var _ anystore.Store = (*SQLiteStore)(nil)

// SQLiteStore is a persistent Store backed by SQLite. Each value is one row
// keyed by the address's string form, and List is a range scan over the
// keys below the address. Listings are in ascending segment order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// initialises the schema. Use ":memory:" for an in-memory SQLite database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("anystore/store: open sqlite: %w", err)
	}
	// SQLite serializes writers anyway, and ":memory:" databases are
	// private to one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS anystore_values (
			key   TEXT PRIMARY KEY,
			value BLOB
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("anystore/store: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value stored at addr.
func (s *SQLiteStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM anystore_values WHERE key = ?`, addr.String(),
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, anystore.NewBackendError(sqliteBackend, "get", addr, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Set inserts or replaces the row for addr.
func (s *SQLiteStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anystore_values (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		addr.String(), value,
	)
	return anystore.NewBackendError(sqliteBackend, "set", addr, err)
}

// Delete removes the row for addr.
func (s *SQLiteStore) Delete(ctx context.Context, addr anystore.Address) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM anystore_values WHERE key = ?`, addr.String())
	return anystore.NewBackendError(sqliteBackend, "delete", addr, err)
}

// List scans every key below addr and reduces them to the distinct
// immediate children.
func (s *SQLiteStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	from, to := addr.KeyRange()
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM anystore_values WHERE key >= ? AND key < ? ORDER BY key`, from, to,
	)
	if err != nil {
		return nil, anystore.NewBackendError(sqliteBackend, "list", addr, err)
	}
	defer rows.Close()

	var descendants []anystore.Address
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, anystore.NewBackendError(sqliteBackend, "list", addr, err)
		}
		descendants = append(descendants, anystore.ParseAddress(key))
	}
	if err := rows.Err(); err != nil {
		return nil, anystore.NewBackendError(sqliteBackend, "list", addr, err)
	}
	return anystore.ImmediateChildren(addr, descendants), nil
}

// Scope returns a view of s rooted at addr.
func (s *SQLiteStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(s, addr)
}

// Close closes the underlying SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
