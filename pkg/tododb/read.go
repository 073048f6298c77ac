package tododb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reader is a read-only view of a [DB]. It cannot modify data.
type Reader struct {
	db *DB
}

// Reader returns the read capability of db.
func (db *DB) Reader() *Reader {
	return &Reader{db: db}
}

// Snapshot is a consistent, read-only view of committed data. It is valid
// only inside the callback it was passed to.
type Snapshot struct {
	c conn
}

// QueryContext runs a query against the snapshot.
func (s Snapshot) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.c.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a query expected to return at most one row.
func (s Snapshot) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.c.QueryRowContext(ctx, query, args...)
}

// Read calls fn with a snapshot taken in a read-only transaction. Every
// statement fn runs sees the same committed state, even while writes
// proceed.
func (r *Reader) Read(ctx context.Context, fn func(Snapshot) error) error {
	if ctx == nil {
		return errors.New("tododb: context is nil")
	}

	if r.db.closed.Load() {
		return ErrClosed
	}

	tx, err := r.db.reader.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		if r.db.closed.Load() {
			return ErrClosed
		}

		return storageErr("read", ID{}, fmt.Errorf("sqlite: begin: %w", err))
	}

	defer func() { _ = tx.Rollback() }()

	err = fn(Snapshot{c: conn{q: tx, t: r.db.tr}})
	if err != nil {
		return storageErr("read", ID{}, err)
	}

	return nil
}
