package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// SeedCmd returns the seed command.
func SeedCmd(*app) *Command {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.Bool("random", false, "Insert random demo items (requires \"demo\": true in config)")

	return &Command{
		Flags: fs,
		Usage: "seed [flags]",
		Short: "Fill an empty list with sample items",
		Long: `Insert sample items when the list is empty. A list that already has
items is left alone.`,
		Args: noArgs,
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, _ []string) error {
			seed := tododb.SeedFixtures
			if random, _ := fs.GetBool("random"); random {
				seed = tododb.SeedRandom
			}

			n, err := db.SeedIfEmpty(ctx, seed)
			if err != nil {
				return err
			}

			if n == 0 {
				io.Println("database not empty, nothing seeded")

				return nil
			}

			io.Printf("seeded %d items\n", n)

			return nil
		},
	}
}
