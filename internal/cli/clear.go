package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// ClearCmd returns the clear command.
func ClearCmd(*app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear",
		Short: "Delete all items",
		Args:  noArgs,
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, _ []string) error {
			n, err := db.DeleteAll(ctx)
			if err != nil {
				return err
			}

			io.Printf("deleted %d items\n", n)

			return nil
		},
	}
}
