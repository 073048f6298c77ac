package tododb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// writeFunc runs inside a write transaction and reports whether any row
// changed. Only changing commits notify observers.
type writeFunc func(ctx context.Context, c conn) (changed bool, err error)

// write runs fn in one serialized transaction and notifies observers of
// tables after commit.
func (db *DB) write(ctx context.Context, op string, id ID, tables []string, fn writeFunc) error {
	if ctx == nil {
		return errors.New("tododb: context is nil")
	}

	if db.closed.Load() {
		return ErrClosed
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed.Load() {
		return ErrClosed
	}

	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, id, fmt.Errorf("sqlite: begin: %w", err))
	}

	changed, err := fn(ctx, conn{q: tx, t: db.tr})
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			rollbackErr = fmt.Errorf("sqlite: rollback: %w", rollbackErr)
		}

		return storageErr(op, id, errors.Join(err, rollbackErr))
	}

	err = tx.Commit()
	if err != nil {
		return storageErr(op, id, fmt.Errorf("sqlite: commit: %w", err))
	}

	if changed {
		db.hub.notify(db.commits.Add(1), tables)
	}

	return nil
}

var itemsRegion = []string{itemsTable}

// Save validates item and inserts it (unsaved identity) or updates the row
// with its id. It returns the item as stored, with the identity assigned on
// insert.
//
// Updating an id that has no row, or saving unchanged content, is not an
// error; nothing is written.
func (db *DB) Save(ctx context.Context, item TodoItem) (TodoItem, error) {
	err := item.Validate()
	if err != nil {
		return TodoItem{}, err
	}

	saved := item

	err = db.write(ctx, "save", item.ID, itemsRegion, func(ctx context.Context, c conn) (bool, error) {
		if n, ok := item.ID.Get(); ok {
			desc := nullString(item.Description)

			// Unchanged content matches no row, so observers are not woken.
			res, err := c.ExecContext(ctx,
				`UPDATE `+itemsTable+` SET title = ?, description = ?
				 WHERE id = ? AND (title IS NOT ? OR description IS NOT ?)`,
				item.Title, desc, n, item.Title, desc)
			if err != nil {
				return false, fmt.Errorf("sqlite: update: %w", err)
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return false, fmt.Errorf("sqlite: rows affected: %w", err)
			}

			return affected > 0, nil
		}

		res, err := c.ExecContext(ctx,
			`INSERT INTO `+itemsTable+` (title, description) VALUES (?, ?)`,
			item.Title, nullString(item.Description))
		if err != nil {
			return false, fmt.Errorf("sqlite: insert: %w", err)
		}

		n, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("sqlite: last insert id: %w", err)
		}

		saved.ID = SavedID(n)

		return true, nil
	})
	if err != nil {
		return TodoItem{}, err
	}

	return saved, nil
}

// Delete removes the row with item's id. Deleting an unsaved item or an id
// that has no row is a no-op.
func (db *DB) Delete(ctx context.Context, item TodoItem) error {
	n, ok := item.ID.Get()
	if !ok {
		if db.closed.Load() {
			return ErrClosed
		}

		return nil
	}

	return db.write(ctx, "delete", item.ID, itemsRegion, func(ctx context.Context, c conn) (bool, error) {
		res, err := c.ExecContext(ctx, `DELETE FROM `+itemsTable+` WHERE id = ?`, n)
		if err != nil {
			return false, fmt.Errorf("sqlite: delete: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("sqlite: rows affected: %w", err)
		}

		return affected > 0, nil
	})
}

// DeleteAll removes every item in one transaction and returns how many rows
// were deleted.
func (db *DB) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64

	err := db.write(ctx, "delete_all", ID{}, itemsRegion, func(ctx context.Context, c conn) (bool, error) {
		res, err := c.ExecContext(ctx, `DELETE FROM `+itemsTable)
		if err != nil {
			return false, fmt.Errorf("sqlite: delete: %w", err)
		}

		deleted, err = res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("sqlite: rows affected: %w", err)
		}

		return deleted > 0, nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// SeedIfEmpty inserts the items selected by seed when the table holds no
// rows. The emptiness check and the inserts share one transaction, so
// concurrent callers seed at most once. It returns the number of inserted
// items, zero when the table was not empty.
//
// [SeedRandom] fails with [ErrDemoDisabled] unless Config.Demo is set.
func (db *DB) SeedIfEmpty(ctx context.Context, seed Seed) (int, error) {
	if seed == SeedRandom && !db.demo {
		return 0, ErrDemoDisabled
	}

	db.rngMu.Lock()
	items, err := seed.items(db.rng)
	db.rngMu.Unlock()

	if err != nil {
		return 0, err
	}

	inserted := 0

	err = db.write(ctx, "seed", ID{}, itemsRegion, func(ctx context.Context, c conn) (bool, error) {
		var count int

		err := c.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+itemsTable).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("sqlite: count: %w", err)
		}

		if count > 0 {
			return false, nil
		}

		for _, item := range items {
			_, err = c.ExecContext(ctx,
				`INSERT INTO `+itemsTable+` (title, description) VALUES (?, ?)`,
				item.Title, nullString(item.Description))
			if err != nil {
				return false, fmt.Errorf("sqlite: insert: %w", err)
			}
		}

		inserted = len(items)

		return true, nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		db.log.Info("database seeded", zap.Stringer("seed", seed), zap.Int("items", inserted))
	}

	return inserted, nil
}
