package cli

import (
	"context"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// EditCmd returns the edit command.
func EditCmd(*app) *Command {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.StringP("title", "t", "", "New title")
	fs.StringP("description", "d", "", "New description")
	fs.Bool("no-description", false, "Remove the description")

	return &Command{
		Flags: fs,
		Usage: "edit <id> [flags]",
		Short: "Change an item's title or description",
		Long: `Change an existing item. Fields without a flag keep their value.

An empty title is rejected.`,
		Args: atLeastOne(errIDRequired),
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, args []string) error {
			return execEdit(ctx, io, db, fs, args)
		},
	}
}

func execEdit(ctx context.Context, io *IO, db *tododb.DB, fs *flag.FlagSet, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if fs.Changed("description") && fs.Changed("no-description") {
		return errDescConflict
	}

	item, err := findItem(ctx, db, id)
	if err != nil {
		return err
	}

	if fs.Changed("title") {
		item.Title, _ = fs.GetString("title")
	}

	if fs.Changed("description") {
		desc, _ := fs.GetString("description")
		item.Description = tododb.Text(desc)
	}

	if none, _ := fs.GetBool("no-description"); none {
		item.Description = nil
	}

	saved, err := db.Save(ctx, item)
	if err != nil {
		return err
	}

	io.Println(formatItem(saved))

	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item ID %q", s)
	}

	return id, nil
}

// findItem fetches the item with id, failing with errItemNotFound.
func findItem(ctx context.Context, db *tododb.DB, id int64) (tododb.TodoItem, error) {
	item, err := tododb.Fetch(ctx, db.Reader(), tododb.ItemByID(id))
	if err != nil {
		return tododb.TodoItem{}, err
	}

	if item == nil {
		return tododb.TodoItem{}, fmt.Errorf("%w: %d", errItemNotFound, id)
	}

	return *item, nil
}
