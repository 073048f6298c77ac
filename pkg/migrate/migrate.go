// Package migrate applies ordered, named schema migrations to a SQLite
// database and records each applied name in a durable ledger table.
//
// Every migration runs in its own transaction together with the ledger
// insert, so a migration is recorded if and only if it committed. A failing
// migration rolls back and stops the run; later migrations are not attempted.
//
// Every run stores a fingerprint of the registered migration list in
// PRAGMA user_version. In development setups, [WithEraseOnSchemaChange]
// trades data retention for iteration speed: when the registered list
// differs from the one that last migrated the database, all tables are
// dropped and rebuilt from scratch.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"time"

	"go.uber.org/zap"
)

// LedgerTable is the table that records applied migrations.
const LedgerTable = "schema_migrations"

// Queryer is the statement surface a migration runs against. *sql.Tx
// satisfies it.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Func mutates the schema inside the migration's transaction.
type Func func(ctx context.Context, tx Queryer) error

// StatementHook is called with every statement before the migrator runs it.
type StatementHook func(query string, args []any)

// Migration is a named, one-time schema change.
type Migration struct {
	Name string
	Up   Func
}

// Migrator holds an ordered migration registry.
//
// Register all migrations before the first call to [Migrator.Migrate];
// the registry is not safe for concurrent mutation.
type Migrator struct {
	migrations []Migration
	names      map[string]struct{}
	erase      bool
	log        *zap.Logger
	hook       StatementHook
}

// Option configures a [Migrator].
type Option func(*Migrator)

// WithEraseOnSchemaChange drops and recreates the whole schema whenever the
// registered migrations differ from the ones recorded in the database.
//
// Never enable this against data you want to keep.
func WithEraseOnSchemaChange() Option {
	return func(m *Migrator) { m.erase = true }
}

// WithLogger sets the logger used to report applied migrations.
func WithLogger(log *zap.Logger) Option {
	return func(m *Migrator) {
		if log != nil {
			m.log = log
		}
	}
}

// WithStatementHook reports every statement the migrator and its
// migrations run, ledger bookkeeping included.
func WithStatementHook(hook StatementHook) Option {
	return func(m *Migrator) { m.hook = hook }
}

// New returns an empty migrator.
func New(opts ...Option) *Migrator {
	m := &Migrator{
		names: make(map[string]struct{}),
		log:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Register appends a migration. It panics if name is empty, up is nil, or
// the name is already registered.
func (m *Migrator) Register(name string, up Func) *Migrator {
	if name == "" {
		panic("migrate: Register with empty name")
	}

	if up == nil {
		panic("migrate: Register with nil func for " + name)
	}

	if _, dup := m.names[name]; dup {
		panic("migrate: Register called twice for " + name)
	}

	m.names[name] = struct{}{}
	m.migrations = append(m.migrations, Migration{Name: name, Up: up})

	return m
}

// Names returns the registered migration names in registration order.
func (m *Migrator) Names() []string {
	names := make([]string, len(m.migrations))
	for i, mig := range m.migrations {
		names[i] = mig.Name
	}

	return names
}

// Fingerprint identifies the registered migration list. It is positive and
// fits in SQLite's 32-bit user_version.
func (m *Migrator) Fingerprint() int64 {
	h := fnv.New32a()

	for _, mig := range m.migrations {
		_, _ = h.Write([]byte(mig.Name))
		_, _ = h.Write([]byte{0})
	}

	return int64(h.Sum32() & 0x7fffffff)
}

// Migrate applies every registered migration that the ledger does not list
// yet, in registration order. Calling it on an up-to-date database is a
// no-op.
//
// Failures return an error satisfying errors.Is(err, [ErrMigration]).
func (m *Migrator) Migrate(ctx context.Context, db *sql.DB) error {
	if ctx == nil {
		return errors.New("migrate: context is nil")
	}

	if db == nil {
		return errors.New("migrate: db is nil")
	}

	q := m.traced(db)

	if m.erase {
		err := m.eraseIfChanged(ctx, db)
		if err != nil {
			return &Error{Err: err}
		}
	}

	_, err := q.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+LedgerTable+` (
		name       TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return &Error{Err: fmt.Errorf("creating ledger: %w", err)}
	}

	for _, mig := range m.migrations {
		applied, err := m.apply(ctx, db, mig)
		if err != nil {
			return &Error{Name: mig.Name, Err: err}
		}

		if applied {
			m.log.Info("migration applied", zap.String("migration", mig.Name))
		}
	}

	_, err = q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Fingerprint()))
	if err != nil {
		return &Error{Err: fmt.Errorf("storing fingerprint: %w", err)}
	}

	return nil
}

// apply runs one migration unless the ledger already lists it.
// The ledger check and insert share the migration's transaction.
func (m *Migrator) apply(ctx context.Context, db *sql.DB, mig Migration) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	q := m.traced(tx)

	var one int

	err = q.QueryRowContext(ctx, "SELECT 1 FROM "+LedgerTable+" WHERE name = ?", mig.Name).Scan(&one)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("reading ledger: %w", err)
	}

	err = mig.Up(ctx, q)
	if err != nil {
		return false, err
	}

	_, err = q.ExecContext(ctx, "INSERT INTO "+LedgerTable+" (name, applied_at) VALUES (?, ?)",
		mig.Name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("recording: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	return true, nil
}

// Applied returns the names recorded in the ledger, in the order they were
// applied. A database that was never migrated has no ledger and returns an
// empty slice.
func (m *Migrator) Applied(ctx context.Context, db *sql.DB) ([]string, error) {
	q := m.traced(db)

	exists, err := tableExists(ctx, q, LedgerTable)
	if err != nil {
		return nil, err
	}

	names := []string{}

	if !exists {
		return names, nil
	}

	rows, err := q.QueryContext(ctx, "SELECT name FROM "+LedgerTable+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string

		err = rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("reading ledger: %w", err)
		}

		names = append(names, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	return names, nil
}

// eraseIfChanged drops every table when the stored fingerprint differs from
// the registered one. An empty database is left alone.
//
// A database without a fingerprint (user_version 0) predates fingerprinting;
// its ledger decides instead.
func (m *Migrator) eraseIfChanged(ctx context.Context, db *sql.DB) error {
	var stored int64

	err := m.traced(db).QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored)
	if err != nil {
		return fmt.Errorf("reading fingerprint: %w", err)
	}

	if stored == m.Fingerprint() {
		return nil
	}

	if stored == 0 {
		applied, err := m.Applied(ctx, db)
		if err != nil {
			return err
		}

		if slices.Equal(applied, m.Names()) {
			return nil
		}
	}

	objects, err := userObjects(ctx, m.traced(db))
	if err != nil {
		return err
	}

	if len(objects) == 0 {
		return nil
	}

	m.log.Warn("erasing database: migrations changed",
		zap.Int64("stored_fingerprint", stored),
		zap.Int64("fingerprint", m.Fingerprint()))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin erase: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	q := m.traced(tx)

	for _, obj := range objects {
		_, err = q.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %q", obj.kind, obj.name))
		if err != nil {
			return fmt.Errorf("dropping %s %s: %w", obj.kind, obj.name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit erase: %w", err)
	}

	return nil
}

// traced reports statements to the hook before running them on q.
type traced struct {
	q    Queryer
	hook StatementHook
}

func (m *Migrator) traced(q Queryer) Queryer {
	if m.hook == nil {
		return q
	}

	return traced{q: q, hook: m.hook}
}

func (t traced) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.hook(query, args)

	return t.q.ExecContext(ctx, query, args...)
}

func (t traced) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	t.hook(query, args)

	return t.q.QueryContext(ctx, query, args...)
}

func (t traced) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	t.hook(query, args)

	return t.q.QueryRowContext(ctx, query, args...)
}

type schemaObject struct {
	kind string
	name string
}

// userObjects lists views and tables, views first so no view outlives the
// table it selects from.
func userObjects(ctx context.Context, q Queryer) ([]schemaObject, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT type, name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY CASE type WHEN 'view' THEN 0 ELSE 1 END, name`)
	if err != nil {
		return nil, fmt.Errorf("listing schema: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var objects []schemaObject

	for rows.Next() {
		var obj schemaObject

		err = rows.Scan(&obj.kind, &obj.name)
		if err != nil {
			return nil, fmt.Errorf("listing schema: %w", err)
		}

		if obj.kind == "table" {
			obj.kind = "TABLE"
		} else {
			obj.kind = "VIEW"
		}

		objects = append(objects, obj)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("listing schema: %w", err)
	}

	return objects, nil
}

func tableExists(ctx context.Context, q Queryer, name string) (bool, error) {
	var one int

	err := q.QueryRowContext(ctx, "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&one)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	return false, fmt.Errorf("sqlite: %w", err)
}
