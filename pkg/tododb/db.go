// Package tododb persists a todo list in SQLite.
//
// A [DB] owns one write connection and a pool of read-only connections.
// Writes ([DB.Save], [DB.Delete], [DB.DeleteAll], [DB.SeedIfEmpty]) are
// serialized and each runs in its own transaction. Reads go through a
// [Reader], which only ever sees committed data. [Observe] re-runs a
// [Query] after every commit that touches the tables it reads and hands the
// fresh value to a callback.
//
// The schema is created and upgraded by [Open] before any other access.
package tododb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBusyTimeout = 10 * time.Second
	defaultReadConns   = 4
	dirPerm            = 0o755
)

// Mode selects how schema changes are handled.
type Mode int

const (
	// ModeDefault resolves to ModeDevelopment in binaries built with the
	// tododev tag and to ModeProduction otherwise.
	ModeDefault Mode = iota

	// ModeProduction applies pending migrations and never drops data.
	ModeProduction

	// ModeDevelopment erases the database when the migration list changed
	// since it was built. Use only with disposable data.
	ModeDevelopment
)

func (m Mode) resolve() Mode {
	if m != ModeDefault {
		return m
	}

	if devBuild {
		return ModeDevelopment
	}

	return ModeProduction
}

func (m Mode) String() string {
	switch m.resolve() {
	case ModeDevelopment:
		return "development"
	default:
		return "production"
	}
}

// Config configures [Open].
type Config struct {
	// Path is the database file, or [MemoryPath] for a private in-memory
	// database. Parent directories are created.
	Path string

	// Driver is [DriverCGO] (default) or [DriverPure].
	Driver string

	Mode Mode

	// Trace logs every statement at debug level.
	Trace bool

	// PublicStatementArguments includes bound arguments in traced
	// statements. They are always public in tododev builds.
	PublicStatementArguments bool

	// Demo allows [SeedRandom].
	Demo bool

	// BusyTimeout bounds how long a statement waits on a locked database.
	// Defaults to 10s.
	BusyTimeout time.Duration

	// ReadConns is the size of the read-only pool for file databases.
	// Defaults to 4.
	ReadConns int

	// Logger receives migration events, observation warnings and traces.
	// Nil disables logging.
	Logger *zap.Logger
}

// DB is an open todo database. It is safe for concurrent use.
type DB struct {
	path string
	mode Mode
	demo bool
	log  *zap.Logger
	tr   *tracer

	writer *sql.DB
	reader *sql.DB // same as writer for in-memory databases
	lock   *processLock

	// mu serializes write transactions.
	mu     sync.Mutex
	closed atomic.Bool

	// commits counts committed write transactions that changed rows.
	commits atomic.Uint64
	hub     *hub

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Open opens (creating if needed) the database at cfg.Path and brings its
// schema up to date.
//
// A migration failure is returned as an error satisfying
// errors.Is(err, [ErrMigration]); no DB is returned in that case.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if ctx == nil {
		return nil, errors.New("tododb: context is nil")
	}

	if cfg.Path == "" {
		return nil, errors.New("tododb: path is empty")
	}

	if cfg.Driver == "" {
		cfg.Driver = DriverCGO
	}

	if !validDriver(cfg.Driver) {
		return nil, fmt.Errorf("tododb: unknown driver %q (want %q or %q)", cfg.Driver, DriverCGO, DriverPure)
	}

	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}

	if cfg.ReadConns <= 0 {
		cfg.ReadConns = defaultReadConns
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	log = log.With(zap.String("db", cfg.Path))

	db := &DB{
		path: cfg.Path,
		mode: cfg.Mode.resolve(),
		demo: cfg.Demo,
		log:  log,
		tr: &tracer{
			log:        log,
			enabled:    cfg.Trace,
			publicArgs: cfg.PublicStatementArguments || devBuild,
		},
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	db.hub = newHub(log)

	err := db.open(ctx, cfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("tododb: open %s: %w", cfg.Path, err), db.closeResources())
	}

	log.Debug("database opened",
		zap.String("driver", cfg.Driver),
		zap.Stringer("mode", db.mode))

	return db, nil
}

func (db *DB) open(ctx context.Context, cfg Config) error {
	memory := cfg.Path == MemoryPath

	if !memory {
		err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm)
		if err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}

		db.lock, err = tryLock(cfg.Path + ".lock")
		if err != nil {
			return err
		}
	}

	writer, err := openWriter(ctx, cfg.Driver, cfg.Path, cfg.BusyTimeout)
	if err != nil {
		return err
	}

	db.writer = writer

	err = newMigrator(db.mode, db.log, db.tr).Migrate(ctx, writer)
	if err != nil {
		return err
	}

	if memory {
		db.reader = writer

		return nil
	}

	db.reader, err = openReader(ctx, cfg.Driver, cfg.Path, cfg.BusyTimeout, cfg.ReadConns)

	return err
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// Mode returns the effective schema mode.
func (db *DB) Mode() Mode {
	return db.mode
}

// AppliedMigrations returns the names recorded in the migration ledger, in
// the order they were applied.
func (db *DB) AppliedMigrations(ctx context.Context) ([]string, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}

	names, err := newMigrator(db.mode, db.log, db.tr).Applied(ctx, db.reader)
	if err != nil {
		return nil, storageErr("migrations", ID{}, err)
	}

	return names, nil
}

// Close cancels all subscriptions, waits for an in-flight write and releases
// the connections and the file lock. Further calls return nil.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}

	db.hub.closeAll()

	db.mu.Lock()
	defer db.mu.Unlock()

	return db.closeResources()
}

func (db *DB) closeResources() error {
	var errs []error

	if db.reader != nil && db.reader != db.writer {
		err := db.reader.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("sqlite: close reader: %w", err))
		}
	}

	if db.writer != nil {
		err := db.writer.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("sqlite: close writer: %w", err))
		}
	}

	if db.lock != nil {
		err := db.lock.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
