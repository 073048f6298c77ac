package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

var (
	errTitleRequired = errors.New("title is required")
	errIDRequired    = errors.New("item ID is required")
	errItemNotFound  = errors.New("item not found")
	errDescConflict  = errors.New("--description and --no-description cannot be used together")
)

// AddCmd returns the add command.
func AddCmd(*app) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringP("description", "d", "", "Description text")
	fs.Bool("no-description", false, "Store no description at all (instead of an empty one)")

	return &Command{
		Flags: fs,
		Usage: "add <title> [flags]",
		Short: "Add an item, prints its ID",
		Long:  "Add a new item. Words after the command are joined into the title. Prints the new ID.",
		Args:  atLeastOne(errTitleRequired),
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, args []string) error {
			return execAdd(ctx, io, db, fs, args)
		},
	}
}

func execAdd(ctx context.Context, io *IO, db *tododb.DB, fs *flag.FlagSet, args []string) error {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return errTitleRequired
	}

	item := tododb.NewItem()
	item.Title = title

	desc, _ := fs.GetString("description")
	item.Description = tododb.Text(desc)

	if none, _ := fs.GetBool("no-description"); none {
		if fs.Changed("description") {
			return errDescConflict
		}

		item.Description = nil
	}

	saved, err := db.Save(ctx, item)
	if err != nil {
		return err
	}

	io.Println(saved.ID.String())

	return nil
}
