// Package cli implements the todo command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/tododb/internal/config"
	"github.com/calvinalkan/tododb/pkg/tododb"
)

// Run is the main entry point. Returns exit code.
//
// sigCh, when non-nil, cancels the running command on the first signal.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("todo", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	var (
		workDir    = globals.StringP("cwd", "C", "", "Run as if started in `dir`")
		configPath = globals.StringP("config", "c", "", "Use the config `file`")
		dbPath     = globals.String("db", "", "Database `path` (\":memory:\" for a throwaway database)")
		verbose    = globals.BoolP("verbose", "v", false, "Log debug output to stderr")
		help       = globals.BoolP("help", "h", false, "Show help")
	)

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals, nil)

		return 1
	}

	if globals.Changed("db") && *dbPath == "" {
		fprintln(errOut, "error:", config.ErrDBPathEmpty)
		printUsage(errOut, globals, nil)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		DBPathOverride:  *dbPath,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log := newLogger(errOut, *verbose, cfg.SQLTrace)
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, log: log, in: in}
	commands := a.commands()

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(out, errOut), rest[1:], a.withDB)
}

// app carries what commands share: resolved config, logger and stdin.
type app struct {
	cfg config.Config
	log *zap.Logger
	in  io.Reader
}

func (a *app) commands() []*Command {
	return []*Command{
		AddCmd(a),
		EditCmd(a),
		RmCmd(a),
		LsCmd(a),
		SeedCmd(a),
		ClearCmd(a),
		ShellCmd(a),
		MigrationsCmd(a),
		InitCmd(a),
		PrintConfigCmd(a),
	}
}

// withDB opens the configured database for the duration of fn.
func (a *app) withDB(ctx context.Context, fn func(db *tododb.DB) error) error {
	db, err := tododb.Open(ctx, tododb.Config{
		Path:   a.cfg.DBPathAbs,
		Driver: a.cfg.Driver,
		Trace:  a.cfg.SQLTrace,
		Demo:   a.cfg.Demo,
		Logger: a.log,
	})
	if err != nil {
		return err
	}

	err = fn(db)

	closeErr := db.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("closing database: %w", closeErr)
	}

	return errors.Join(err, closeErr)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `todo - a small persistent todo list

Usage: todo [global flags] <command> [args]

Global flags:`)

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})
	_, _ = io.WriteString(w, buf.String())

	if len(commands) == 0 {
		return
	}

	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
