package tododb

import "context"

// ObserverCount returns how many subscriptions are registered on db.
func ObserverCount(db *DB) int {
	return db.hub.size()
}

const DevBuild = devBuild

// ExecSchema runs stmt on the write connection outside any write operation,
// for installing triggers that make later writes fail.
func ExecSchema(ctx context.Context, db *DB, stmt string) error {
	_, err := db.writer.ExecContext(ctx, stmt)

	return err
}
