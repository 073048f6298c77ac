package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

var errQuit = errors.New("quit")

var shellCommands = []string{
	"add", "edit", "desc", "rm", "ls", "clear", "seed", "help", "quit",
}

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	fs.Bool("quiet", false, "Do not reprint the list after every change")

	return &Command{
		Flags: fs,
		Usage: "shell [flags]",
		Short: "Interactive session with a live list",
		Long: `Open the database and read commands interactively. The list is
printed once at start and again after every committed change.

Type 'help' inside the shell for its commands.`,
		Args: noArgs,
		ExecDB: func(ctx context.Context, io *IO, db *tododb.DB, _ []string) error {
			quiet, _ := fs.GetBool("quiet")

			return runShell(ctx, io, a, db, quiet)
		},
	}
}

// prompter reads one command line. io.EOF ends the session.
type prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

func runShell(ctx context.Context, o *IO, a *app, db *tododb.DB, quiet bool) error {
	in := a.in
	if in == nil {
		in = strings.NewReader("")
	}

	var p prompter
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		p = newLinePrompter()
	} else {
		p = &scanPrompter{sc: bufio.NewScanner(in)}
	}

	defer func() { _ = p.Close() }()

	if !quiet {
		sub, err := tododb.Observe(ctx, db, tododb.AllItems{}, func(items []tododb.TodoItem) {
			printList(o, items)
		}, tododb.OnError(func(err error) {
			o.ErrPrintln("error: refreshing list:", err)
		}))
		if err != nil {
			return err
		}

		defer sub.Cancel()
	}

	sh := &shell{db: db, o: o}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := p.Prompt("todo> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if lp, ok := p.(*linePrompter); ok {
			lp.state.AppendHistory(line)
		}

		err = sh.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}

		if err != nil {
			o.ErrPrintln("error:", err)
		}
	}
}

func printList(o *IO, items []tododb.TodoItem) {
	var b strings.Builder

	fmt.Fprintf(&b, "-- %d items --\n", len(items))

	for _, item := range items {
		b.WriteString(formatItem(item))
		b.WriteByte('\n')
	}

	o.Printf("%s", b.String())
}

type shell struct {
	db *tododb.DB
	o  *IO
}

func (sh *shell) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		sh.help()

		return nil
	case "add":
		return sh.add(ctx, rest)
	case "edit":
		return sh.update(ctx, rest, func(item *tododb.TodoItem, text string) { item.Title = text })
	case "desc":
		return sh.update(ctx, rest, func(item *tododb.TodoItem, text string) { item.Description = tododb.Text(text) })
	case "rm":
		return sh.rm(ctx, rest)
	case "ls":
		items, err := tododb.Fetch(ctx, sh.db.Reader(), tododb.AllItems{})
		if err != nil {
			return err
		}

		printList(sh.o, items)

		return nil
	case "clear":
		n, err := sh.db.DeleteAll(ctx)
		if err != nil {
			return err
		}

		sh.o.Printf("deleted %d items\n", n)

		return nil
	case "seed":
		n, err := sh.db.SeedIfEmpty(ctx, tododb.SeedFixtures)
		if err != nil {
			return err
		}

		sh.o.Printf("seeded %d items\n", n)

		return nil
	default:
		return fmt.Errorf("unknown command %q (type 'help' for commands)", cmd)
	}
}

func (sh *shell) help() {
	sh.o.Println(`Commands:
  add <title>         Add an item
  edit <id> <title>   Change an item's title
  desc <id> [text]    Change an item's description
  rm <id>             Delete an item
  ls                  Print the list
  clear               Delete all items
  seed                Insert sample items into an empty list
  help                Show this help
  quit                Leave the shell`)
}

func (sh *shell) add(ctx context.Context, title string) error {
	if title == "" {
		return errTitleRequired
	}

	item := tododb.NewItem()
	item.Title = title

	saved, err := sh.db.Save(ctx, item)
	if err != nil {
		return err
	}

	sh.o.Println("added", saved.ID.String())

	return nil
}

func (sh *shell) update(ctx context.Context, args string, apply func(*tododb.TodoItem, string)) error {
	idArg, text, _ := strings.Cut(args, " ")
	if idArg == "" {
		return errIDRequired
	}

	item, err := sh.find(ctx, idArg)
	if err != nil {
		return err
	}

	apply(&item, strings.TrimSpace(text))

	_, err = sh.db.Save(ctx, item)

	return err
}

func (sh *shell) rm(ctx context.Context, idArg string) error {
	if idArg == "" {
		return errIDRequired
	}

	item, err := sh.find(ctx, idArg)
	if err != nil {
		return err
	}

	return sh.db.Delete(ctx, item)
}

func (sh *shell) find(ctx context.Context, idArg string) (tododb.TodoItem, error) {
	id, err := parseID(idArg)
	if err != nil {
		return tododb.TodoItem{}, err
	}

	item, err := tododb.Fetch(ctx, sh.db.Reader(), tododb.ItemByID(id))
	if err != nil {
		return tododb.TodoItem{}, err
	}

	if item == nil {
		return tododb.TodoItem{}, fmt.Errorf("%w: %d", errItemNotFound, id)
	}

	return *item, nil
}

// linePrompter edits lines on a terminal and keeps history across sessions.
type linePrompter struct {
	state *liner.State
}

func newLinePrompter() *linePrompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var out []string

		for _, c := range shellCommands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}

		return out
	})

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = state.ReadHistory(f)
		_ = f.Close()
	}

	return &linePrompter{state: state}
}

func (p *linePrompter) Prompt(prompt string) (string, error) {
	return p.state.Prompt(prompt)
}

func (p *linePrompter) Close() error {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = p.state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return p.state.Close()
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".todo_history")
}

// scanPrompter reads plain lines from a non-terminal input.
type scanPrompter struct {
	sc *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if p.sc.Scan() {
		return p.sc.Text(), nil
	}

	if err := p.sc.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (p *scanPrompter) Close() error { return nil }
