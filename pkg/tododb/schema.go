package tododb

import (
	"context"

	"go.uber.org/zap"

	"github.com/calvinalkan/tododb/pkg/migrate"
)

// itemsTable is the table backing [TodoItem].
const itemsTable = "todoItem"

// Migrations lists the schema migrations in the order they are applied.
func Migrations() []string {
	return newMigrator(ModeProduction, zap.NewNop(), nil).Names()
}

// newMigrator builds the registry. Append new migrations; never edit or
// reorder shipped ones. Migration statements go through tr like any other.
func newMigrator(mode Mode, log *zap.Logger, tr *tracer) *migrate.Migrator {
	opts := []migrate.Option{migrate.WithLogger(log), migrate.WithStatementHook(tr.trace)}
	if mode == ModeDevelopment {
		opts = append(opts, migrate.WithEraseOnSchemaChange())
	}

	return migrate.New(opts...).
		Register("createTodoItem", func(ctx context.Context, tx migrate.Queryer) error {
			_, err := tx.ExecContext(ctx, `CREATE TABLE `+itemsTable+` (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				title       TEXT NOT NULL,
				description TEXT
			)`)

			return err
		})
}
