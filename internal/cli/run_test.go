package cli_test

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func Test_Run_Prints_Usage_When_No_Command(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	stdout, stderr, code := c.Run()

	if code != 0 {
		t.Fatalf("exit=%d, want 0\nstderr: %s", code, stderr)
	}

	AssertContains(t, stdout, "Usage: todo [global flags] <command> [args]")
	AssertContains(t, stdout, "Commands:")

	for _, name := range []string{"add", "edit", "rm", "ls", "seed", "clear", "shell", "migrations", "init", "print-config"} {
		AssertContains(t, stdout, "  "+name)
	}
}

func Test_Run_Fails_When_Global_Flag_Unknown(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	stderr := c.MustFail("--invalid-flag", "ls")

	AssertContains(t, stderr, "unknown flag")
	AssertContains(t, stderr, "--invalid-flag")
	AssertContains(t, stderr, "Global flags:")
	AssertContains(t, stderr, "--cwd")
	AssertContains(t, stderr, "--db")
}

func Test_Run_Fails_When_DB_Flag_Empty(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	stderr := c.MustFail("--db=", "ls")

	AssertContains(t, stderr, "db_path cannot be empty")
	AssertContains(t, stderr, "Global flags:")
}

func Test_Run_Fails_When_Command_Unknown(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	stderr := c.MustFail("frobnicate")

	AssertContains(t, stderr, "unknown command: frobnicate")
	AssertContains(t, stderr, "Commands:")
}

func Test_Run_Prints_Command_Help_When_Help_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	stdout := c.MustRun("add", "--help")

	AssertContains(t, stdout, "Usage: todo add <title> [flags]")
	AssertContains(t, stdout, "--description")
}

func Test_Run_Fails_When_Command_Flag_Unknown(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	_, stderr, code := c.Run("ls", "--bogus")

	if code != 1 {
		t.Fatalf("exit=%d, want 1", code)
	}

	AssertContains(t, stderr, "unknown flag: --bogus")
	AssertContains(t, stderr, "Run 'todo ls --help' for usage.")
}

func Test_Run_Rejects_Arguments_Without_Opening_Database(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	for _, args := range [][]string{{"ls", "extra"}, {"clear", "all"}, {"print-config", "x"}} {
		stderr := c.MustFail(args...)
		AssertContains(t, stderr, fmt.Sprintf("unexpected argument %q", args[1]))
	}

	_, err := os.Stat(filepath.Join(c.Dir, ".todo", "todo.db"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("database was created: %v", err)
	}
}

func Test_Run_Fails_When_Config_Invalid(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.WriteConfig(`{"driver": "postgres"}`)

	stderr := c.MustFail("ls")

	AssertContains(t, stderr, "driver must be")
}

func Test_Run_Logs_Statements_When_Trace_Enabled(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.Env["TODO_SQL_TRACE"] = "true"

	_, stderr, code := c.Run("add", "traced")
	if code != 0 {
		t.Fatalf("exit=%d\nstderr: %s", code, stderr)
	}

	AssertContains(t, stderr, `"msg":"sql"`)
	AssertContains(t, stderr, "INSERT INTO todoItem")
}

func Test_Run_Stays_Quiet_When_Not_Verbose(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	_, stderr, code := c.Run("seed")
	if code != 0 {
		t.Fatalf("exit=%d\nstderr: %s", code, stderr)
	}

	if stderr != "" {
		t.Fatalf("stderr=%q, want empty", stderr)
	}

	_, stderr, _ = c.Run("-v", "clear")
	AssertContains(t, stderr, "DEBUG")
}
