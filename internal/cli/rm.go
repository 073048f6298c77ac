package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// RmCmd returns the rm command.
func RmCmd(*app) *Command {
	return &Command{
		Flags:  flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage:  "rm <id>...",
		Short:  "Delete items",
		Long:   "Delete the given items. IDs that do not exist are reported as warnings.",
		Args:   atLeastOne(errIDRequired),
		ExecDB: execRm,
	}
}

func execRm(ctx context.Context, io *IO, db *tododb.DB, args []string) error {
	ids := make([]int64, 0, len(args))

	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}

		ids = append(ids, id)
	}

	for _, id := range ids {
		item, err := findItem(ctx, db, id)
		if errors.Is(err, errItemNotFound) {
			io.Warn(fmt.Sprintf("item %d not found", id), "nothing deleted for it")

			continue
		}

		if err != nil {
			return err
		}

		err = db.Delete(ctx, item)
		if err != nil {
			return err
		}

		io.Println("deleted", id)
	}

	return nil
}
