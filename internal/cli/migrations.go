package cli

import (
	"context"
	"slices"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// MigrationsCmd returns the migrations command.
func MigrationsCmd(*app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("migrations", flag.ContinueOnError),
		Usage: "migrations",
		Short: "Show schema migrations and their state",
		Long: `Open the database (applying pending migrations) and list every
known migration as "applied" or "pending".`,
		Args: noArgs,
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, _ []string) error {
			applied, err := db.AppliedMigrations(ctx)
			if err != nil {
				return err
			}

			for _, name := range tododb.Migrations() {
				state := "pending"
				if slices.Contains(applied, name) {
					state = "applied"
				}

				io.Printf("%s\t%s\n", name, state)
			}

			return nil
		},
	}
}
