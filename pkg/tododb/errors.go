package tododb

import (
	"errors"
	"strings"

	"github.com/calvinalkan/tododb/pkg/migrate"
)

var (
	// ErrClosed is returned by every operation on a closed [DB].
	ErrClosed = errors.New("tododb: closed")

	// ErrValidation matches every [*ValidationError].
	ErrValidation = errors.New("invalid item")

	// ErrStorage matches every [*StorageError].
	ErrStorage = errors.New("storage failure")

	// ErrMigration matches schema migration failures returned by [Open].
	ErrMigration = migrate.ErrMigration

	// ErrLocked is returned by [Open] when another process holds the
	// database file open for writing.
	ErrLocked = errors.New("database is locked by another process")

	// ErrDemoDisabled is returned when random demo data is requested
	// without Config.Demo.
	ErrDemoDisabled = errors.New("random demo data is disabled (set Config.Demo)")
)

// ValidationReason names the rule a [TodoItem] broke.
type ValidationReason int

const (
	_ ValidationReason = iota
	// MissingTitle means the title is empty.
	MissingTitle
	// UnknownSeed means [DB.SeedIfEmpty] got an undefined [Seed].
	UnknownSeed
)

func (r ValidationReason) String() string {
	switch r {
	case MissingTitle:
		return "please provide a title"
	case UnknownSeed:
		return "unknown seed"
	default:
		return "invalid"
	}
}

// ValidationError is returned before any I/O when an item cannot be saved.
type ValidationError struct {
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Reason.String()
}

// Is reports true for [ErrValidation].
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps a failure of the underlying database.
//
//	database is locked (op=save item_id=3)
//
// Use [errors.As] to read the operation and the item involved.
type StorageError struct {
	// Op is the failed operation: save, delete, delete_all, seed, read.
	Op string

	// ItemID is the item the operation targeted, unsaved when none.
	ItemID ID

	Err error
}

// Error formats as "<cause> (op=X item_id=Y)".
func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}

	cause := ErrStorage.Error()
	if e.Err != nil {
		cause = e.Err.Error()
	}

	var parts []string

	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}

	if e.ItemID.IsSaved() {
		parts = append(parts, "item_id="+e.ItemID.String())
	}

	if len(parts) == 0 {
		return cause
	}

	return cause + " (" + strings.Join(parts, " ") + ")"
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// Is reports true for [ErrStorage].
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// storageErr attaches operation context at API boundaries. Errors that
// already carry a meaning of their own pass through unchanged.
func storageErr(op string, id ID, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrClosed) || errors.Is(err, ErrValidation) || errors.Is(err, ErrDemoDisabled) {
		return err
	}

	existing := &StorageError{}
	if errors.As(err, &existing) {
		if existing.Op == "" {
			existing.Op = op
		}

		if !existing.ItemID.IsSaved() {
			existing.ItemID = id
		}

		return existing
	}

	return &StorageError{Op: op, ItemID: id, Err: err}
}
