package cli

import (
	"context"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/tododb/internal/config"
)

// InitCmd returns the init command.
func InitCmd(a *app) *Command {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.Bool("force", false, "Overwrite an existing config file")

	return &Command{
		Flags: fs,
		Usage: "init [flags]",
		Short: "Write a project config file",
		Long: `Write the effective configuration to ` + config.FileName + ` in the
working directory.`,
		Args: noArgs,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			force, _ := fs.GetBool("force")
			path := filepath.Join(a.cfg.EffectiveCwd, config.FileName)

			err := config.Save(path, a.cfg, force)
			if err != nil {
				return err
			}

			io.Println("wrote", path)

			return nil
		},
	}
}
