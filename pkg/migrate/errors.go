package migrate

import "errors"

// ErrMigration matches every error returned by [Migrator.Migrate].
var ErrMigration = errors.New("migration failed")

// Error reports a failed migration run.
//
//	no such table: foo (migration=addFooIndex)
//
// Name is empty when the failure happened outside a single migration
// (creating the ledger, erasing, storing the fingerprint).
type Error struct {
	Name string
	Err  error
}

// Error formats as "<cause> (migration=NAME)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	cause := ErrMigration.Error()
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if e.Name == "" {
		return cause
	}

	return cause + " (migration=" + e.Name + ")"
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// Is reports true for [ErrMigration].
func (e *Error) Is(target error) bool {
	return target == ErrMigration
}
