package tododb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers "sqlite"
)

const (
	// DriverCGO selects github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure selects modernc.org/sqlite, which needs no C toolchain.
	DriverPure = "sqlite"

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

func validDriver(driver string) bool {
	return driver == DriverCGO || driver == DriverPure
}

// openWriter opens the single read-write connection.
// One connection keeps per-connection pragmas consistent and, for in-memory
// databases, is the database.
func openWriter(ctx context.Context, driver, path string, busy time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, closeOnErr(db, fmt.Errorf("sqlite: ping: %w", err))
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}

	if path != MemoryPath {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = FULL",
		)
	}

	for _, pragma := range pragmas {
		_, err = db.ExecContext(ctx, pragma)
		if err != nil {
			return nil, closeOnErr(db, fmt.Errorf("sqlite: %s: %w", pragma, err))
		}
	}

	return db, nil
}

// openReader opens a pool of read-only connections to a file database.
// Pragmas go through the DSN so every pooled connection gets them.
func openReader(ctx context.Context, driver, path string, busy time.Duration, conns int) (*sql.DB, error) {
	db, err := sql.Open(driver, readerDSN(driver, path, busy))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, closeOnErr(db, fmt.Errorf("sqlite: ping reader: %w", err))
	}

	return db, nil
}

// readerDSN builds a read-only URI. The path is escaped, so names holding
// '?', '#' or '%' stay part of the path, and no authority is written, so
// relative paths stay relative.
func readerDSN(driver, path string, busy time.Duration) string {
	q := url.Values{}
	q.Set("mode", "ro")

	ms := fmt.Sprint(busy.Milliseconds())

	switch driver {
	case DriverPure:
		q.Add("_pragma", "busy_timeout("+ms+")")
		q.Add("_pragma", "query_only(1)")
	default:
		q.Set("_busy_timeout", ms)
		q.Set("_query_only", "1")
	}

	u := url.URL{Scheme: "file", OmitHost: true, Path: filepath.ToSlash(path), RawQuery: q.Encode()}

	return u.String()
}

func closeOnErr(db *sql.DB, err error) error {
	closeErr := db.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
	}

	return errors.Join(err, closeErr)
}

// tracer logs statements when tracing is enabled. Bound arguments may hold
// user data, so they are only logged when explicitly made public.
type tracer struct {
	log        *zap.Logger
	enabled    bool
	publicArgs bool
}

func (t *tracer) trace(query string, args []any) {
	if t == nil || !t.enabled {
		return
	}

	fields := []zap.Field{zap.String("sql", strings.Join(strings.Fields(query), " "))}

	switch {
	case len(args) == 0:
	case t.publicArgs:
		fields = append(fields, zap.Any("args", args))
	default:
		fields = append(fields, zap.String("args", "[REDACTED]"))
	}

	t.log.Debug("sql", fields...)
}

// queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn traces every statement before handing it to q.
type conn struct {
	q queryer
	t *tracer
}

func (c conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.t.trace(query, args)

	return c.q.ExecContext(ctx, query, args...)
}

func (c conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.t.trace(query, args)

	return c.q.QueryContext(ctx, query, args...)
}

func (c conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	c.t.trace(query, args)

	return c.q.QueryRowContext(ctx, query, args...)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	return &ns.String
}
