package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// Command is one todo subcommand. Exactly one of Exec and ExecDB is set.
type Command struct {
	Flags *flag.FlagSet

	// Usage starts with the command name, e.g. "rm <id>...".
	Usage string
	Short string
	Long  string

	// Args checks positional arguments before anything is opened.
	// Nil accepts any.
	Args ArgRule

	// Exec runs commands that do not touch the database.
	Exec func(ctx context.Context, o *IO, args []string) error

	// ExecDB runs with the configured database open; it is closed afterwards.
	ExecDB func(ctx context.Context, o *IO, db *tododb.DB, args []string) error
}

// ArgRule validates positional arguments.
type ArgRule func(args []string) error

// noArgs rejects any positional argument.
func noArgs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q", args[0])
	}

	return nil
}

// atLeastOne fails with missing when no argument was given.
func atLeastOne(missing error) ArgRule {
	return func(args []string) error {
		if len(args) == 0 {
			return missing
		}

		return nil
	}
}

// opener runs fn with an open database.
type opener func(ctx context.Context, fn func(db *tododb.DB) error) error

func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp writes "todo <cmd> --help" output to stdout.
func (c *Command) PrintHelp(o *IO) {
	var b strings.Builder

	fmt.Fprintf(&b, "Usage: todo %s\n\n", c.Usage)

	if c.Long != "" {
		b.WriteString(c.Long)
	} else {
		b.WriteString(c.Short)
	}

	b.WriteByte('\n')

	if c.Flags.HasFlags() {
		b.WriteString("\nFlags:\n")
		b.WriteString(c.Flags.FlagUsages())
	}

	o.Printf("%s", b.String())
}

// Run parses flags, checks arguments and executes the command, opening the
// database through open for ExecDB commands. It returns the exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string, open opener) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err == nil && c.Args != nil {
		err = c.Args(c.Flags.Args())
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		o.ErrPrintln("Run 'todo " + c.Name() + " --help' for usage.")

		return 1
	}

	if c.ExecDB != nil {
		err = open(ctx, func(db *tododb.DB) error {
			return c.ExecDB(ctx, o, db, c.Flags.Args())
		})
	} else {
		err = c.Exec(ctx, o, c.Flags.Args())
	}

	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
