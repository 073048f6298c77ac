package tododb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Query describes a read that can be fetched once or observed.
type Query[R any] interface {
	// Default is the value observers hold before the first fetch.
	Default() R

	// Fetch computes the result from a snapshot.
	Fetch(ctx context.Context, s Snapshot) (R, error)

	// Tables lists the tables Fetch reads. Commits to other tables do not
	// re-run the query.
	Tables() []string
}

// AllItems fetches every item ordered by primary key.
type AllItems struct{}

var _ Query[[]TodoItem] = AllItems{}

func (AllItems) Default() []TodoItem { return []TodoItem{} }

func (AllItems) Tables() []string { return itemsRegion }

func (AllItems) Fetch(ctx context.Context, s Snapshot) ([]TodoItem, error) {
	rows, err := s.QueryContext(ctx, `SELECT id, title, description FROM `+itemsTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select items: %w", err)
	}

	defer func() { _ = rows.Close() }()

	items := []TodoItem{}

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("sqlite: select items: %w", err)
	}

	return items, nil
}

// ItemByID fetches one item. The result is nil when no row has the id.
type ItemByID int64

var _ Query[*TodoItem] = ItemByID(0)

func (ItemByID) Default() *TodoItem { return nil }

func (ItemByID) Tables() []string { return itemsRegion }

func (q ItemByID) Fetch(ctx context.Context, s Snapshot) (*TodoItem, error) {
	row := s.QueryRowContext(ctx, `SELECT id, title, description FROM `+itemsTable+` WHERE id = ?`, int64(q))

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ItemCount counts the items.
type ItemCount struct{}

var _ Query[int] = ItemCount{}

func (ItemCount) Default() int { return 0 }

func (ItemCount) Tables() []string { return itemsRegion }

func (ItemCount) Fetch(ctx context.Context, s Snapshot) (int, error) {
	var n int

	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+itemsTable).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count items: %w", err)
	}

	return n, nil
}

// QueryFunc adapts a function into a [Query].
type QueryFunc[R any] struct {
	Initial R
	Region  []string
	Func    func(ctx context.Context, s Snapshot) (R, error)
}

func (q QueryFunc[R]) Default() R { return q.Initial }

func (q QueryFunc[R]) Tables() []string { return q.Region }

func (q QueryFunc[R]) Fetch(ctx context.Context, s Snapshot) (R, error) {
	return q.Func(ctx, s)
}

// Fetch runs q once against a fresh snapshot.
func Fetch[R any](ctx context.Context, r *Reader, q Query[R]) (R, error) {
	var out R

	err := r.Read(ctx, func(s Snapshot) error {
		v, err := q.Fetch(ctx, s)
		if err != nil {
			return err
		}

		out = v

		return nil
	})
	if err != nil {
		var zero R

		return zero, err
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (TodoItem, error) {
	var (
		id          int64
		title       string
		description sql.NullString
	)

	err := row.Scan(&id, &title, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return TodoItem{}, err
	}

	if err != nil {
		return TodoItem{}, fmt.Errorf("sqlite: scan item: %w", err)
	}

	return TodoItem{ID: SavedID(id), Title: title, Description: stringPtr(description)}, nil
}
