package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Args:  noArgs,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			cfg := a.cfg

			io.Println("db_path=" + cfg.DBPathAbs)
			io.Println("driver=" + cfg.Driver)
			io.Println("sql_trace=" + strconv.FormatBool(cfg.SQLTrace))
			io.Println("demo=" + strconv.FormatBool(cfg.Demo))

			if cfg.Sources.Global != "" {
				io.Println("source.global=" + cfg.Sources.Global)
			}

			if cfg.Sources.Project != "" {
				io.Println("source.project=" + cfg.Sources.Project)
			}

			return nil
		},
	}
}
