package cli

import (
	"context"
	"encoding/json"
	"fmt"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// itemView is the serialized form of an item. A nil description is
// omitted, an empty one is kept.
type itemView struct {
	ID          int64   `json:"id"                    yaml:"id"`
	Title       string  `json:"title"                 yaml:"title"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
}

func viewOf(item tododb.TodoItem) itemView {
	id, _ := item.ID.Get()

	return itemView{ID: id, Title: item.Title, Description: item.Description}
}

// LsCmd returns the ls command.
func LsCmd(*app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.StringP("format", "f", formatText, "Output format: text, json or yaml")

	return &Command{
		Flags: fs,
		Usage: "ls [flags]",
		Short: "List items",
		Long:  "List all items ordered by ID.",
		Args:  noArgs,
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, _ []string) error {
			return execLs(ctx, io, db, fs)
		},
	}
}

func execLs(ctx context.Context, io *IO, db *tododb.DB, fs *flag.FlagSet) error {
	format, _ := fs.GetString("format")

	switch format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("invalid --format %q (want text, json or yaml)", format)
	}

	items, err := tododb.Fetch(ctx, db.Reader(), tododb.AllItems{})
	if err != nil {
		return err
	}

	return printItems(io, items, format)
}

func printItems(io *IO, items []tododb.TodoItem, format string) error {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, viewOf(item))
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(io)
		enc.SetIndent("", "  ")

		err := enc.Encode(views)
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	case formatYAML:
		enc := yaml.NewEncoder(io)
		enc.SetIndent(2)

		err := enc.Encode(views)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return enc.Close()
	default:
		for _, item := range items {
			io.Println(formatItem(item))
		}
	}

	return nil
}

// formatItem renders one text line: id, title and description, tab separated.
func formatItem(item tododb.TodoItem) string {
	line := item.ID.String() + "\t" + item.Title
	if item.Description != nil && *item.Description != "" {
		line += "\t" + *item.Description
	}

	return line
}
