package cli_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func Test_Add_Prints_ID_When_Title_Given(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	if got := c.MustRun("add", "Buy", "milk", "-d", "2 liters"); got != "1" {
		t.Fatalf("first add printed %q, want 1", got)
	}

	if got := c.MustRun("add", "Walk dog"); got != "2" {
		t.Fatalf("second add printed %q, want 2", got)
	}

	got := c.MustRun("ls")
	want := "1\tBuy milk\t2 liters\n2\tWalk dog"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ls mismatch (-want +got):\n%s", diff)
	}
}

func Test_Add_Fails_When_Title_Missing(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	AssertContains(t, c.MustFail("add"), "title is required")
	AssertContains(t, c.MustFail("add", "   "), "title is required")
	AssertContains(t, c.MustFail("add", "x", "-d", "y", "--no-description"), "cannot be used together")
}

func Test_Edit_Changes_Only_Given_Fields_When_Item_Exists(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("add", "Old title", "-d", "keep me")

	got := c.MustRun("edit", "1", "-t", "New title")
	if got != "1\tNew title\tkeep me" {
		t.Fatalf("edit printed %q", got)
	}

	c.MustRun("edit", "1", "--no-description")

	out := c.MustRun("ls", "--format", "json")
	AssertNotContains(t, out, "description")
	AssertContains(t, out, `"title": "New title"`)
}

func Test_Edit_Fails_When_Input_Invalid(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("add", "present")

	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"edit"}, "item ID is required"},
		{[]string{"edit", "abc"}, `invalid item ID "abc"`},
		{[]string{"edit", "0"}, `invalid item ID "0"`},
		{[]string{"edit", "99", "-t", "x"}, "item not found: 99"},
		{[]string{"edit", "1", "-t", ""}, "please provide a title"},
	} {
		AssertContains(t, c.MustFail(tc.args...), tc.want)
	}

	if got := c.MustRun("ls"); got != "1\tpresent" {
		t.Fatalf("failed edits changed the list: %q", got)
	}
}

func Test_Rm_Deletes_Items_When_IDs_Exist(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("add", "a")
	c.MustRun("add", "b")
	c.MustRun("add", "c")

	got := c.MustRun("rm", "1", "3")
	if got != "deleted 1\ndeleted 3" {
		t.Fatalf("rm printed %q", got)
	}

	if got := c.MustRun("ls"); got != "2\tb" {
		t.Fatalf("ls after rm = %q", got)
	}
}

func Test_Rm_Warns_When_ID_Missing(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("add", "a")

	stdout, stderr, code := c.Run("rm", "7", "1")
	if code != 1 {
		t.Fatalf("exit=%d, want 1", code)
	}

	AssertContains(t, stdout, "deleted 1")
	AssertContains(t, stderr, "warning: item 7 not found")

	if got := c.MustRun("ls"); got != "" {
		t.Fatalf("ls after rm = %q, want empty", got)
	}
}

func Test_Ls_Renders_Formats_When_Requested(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("add", "first", "-d", "")
	c.MustRun("add", "second", "--no-description")
	c.MustRun("add", "third", "-d", "details")

	type view struct {
		ID          int64   `json:"id"          yaml:"id"`
		Title       string  `json:"title"       yaml:"title"`
		Description *string `json:"description" yaml:"description"`
	}

	empty, details := "", "details"
	want := []view{
		{ID: 1, Title: "first", Description: &empty},
		{ID: 2, Title: "second"},
		{ID: 3, Title: "third", Description: &details},
	}

	var fromJSON []view
	if err := json.Unmarshal([]byte(c.MustRun("ls", "--format", "json")), &fromJSON); err != nil {
		t.Fatalf("json: %v", err)
	}

	if diff := cmp.Diff(want, fromJSON); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}

	var fromYAML []view
	if err := yaml.Unmarshal([]byte(c.MustRun("ls", "-f", "yaml")), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}

	if diff := cmp.Diff(want, fromYAML); diff != "" {
		t.Fatalf("yaml mismatch (-want +got):\n%s", diff)
	}

	AssertContains(t, c.MustFail("ls", "--format", "xml"), "invalid --format")
}

func Test_Ls_Prints_Empty_Array_When_No_Items(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	if got := c.MustRun("ls", "--format", "json"); got != "[]" {
		t.Fatalf("json = %q, want []", got)
	}
}

func Test_Seed_Inserts_Fixtures_Once_When_Empty(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	if got := c.MustRun("seed"); got != "seeded 8 items" {
		t.Fatalf("seed printed %q", got)
	}

	if got := c.MustRun("seed"); got != "database not empty, nothing seeded" {
		t.Fatalf("second seed printed %q", got)
	}

	out := c.MustRun("ls")
	if n := len(strings.Split(out, "\n")); n != 8 {
		t.Fatalf("ls lines = %d, want 8\n%s", n, out)
	}

	AssertContains(t, out, "1\tArthur")
	AssertContains(t, out, "8\tHenriette")
}

func Test_Seed_Random_Requires_Demo_When_Requested(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	AssertContains(t, c.MustFail("seed", "--random"), "random demo data is disabled")

	c.WriteConfig(`{"demo": true}`)

	if got := c.MustRun("seed", "--random"); got != "seeded 8 items" {
		t.Fatalf("seed --random printed %q", got)
	}
}

func Test_Clear_Deletes_All_When_Items_Exist(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.MustRun("seed")

	if got := c.MustRun("clear"); got != "deleted 8 items" {
		t.Fatalf("clear printed %q", got)
	}

	if got := c.MustRun("clear"); got != "deleted 0 items" {
		t.Fatalf("second clear printed %q", got)
	}

	// Cleared ids are not reused.
	if got := c.MustRun("add", "after"); got != "9" {
		t.Fatalf("add after clear printed %q, want 9", got)
	}
}

func Test_Migrations_Lists_Applied_When_Opened(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	if got := c.MustRun("migrations"); got != "createTodoItem\tapplied" {
		t.Fatalf("migrations printed %q", got)
	}
}

func Test_Memory_DB_Starts_Empty_When_Each_Command_Runs(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	c.MustRun("--db", ":memory:", "add", "gone")

	if got := c.MustRun("--db", ":memory:", "ls"); got != "" {
		t.Fatalf("memory ls = %q, want empty", got)
	}
}

func Test_Init_Writes_Config_When_Absent(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	path := filepath.Join(c.Dir, ".todo.json")

	if got := c.MustRun("--db", "items.db", "init"); got != "wrote "+path {
		t.Fatalf("init printed %q", got)
	}

	AssertContains(t, c.MustRun("print-config"), "db_path="+filepath.Join(c.Dir, "items.db"))
	AssertContains(t, c.MustFail("init"), "config file already exists")

	c.MustRun("--db", "other.db", "init", "--force")
	AssertContains(t, c.MustRun("print-config"), "db_path="+filepath.Join(c.Dir, "other.db"))
}

func Test_PrintConfig_Shows_Sources_When_Loaded(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	c.WriteConfig(`{
		// JSONC is accepted
		"driver": "sqlite",
		"demo": true,
	}`)

	got := c.MustRun("print-config")

	for _, line := range []string{
		"db_path=" + filepath.Join(c.Dir, ".todo", "todo.db"),
		"driver=sqlite",
		"sql_trace=false",
		"demo=true",
		"source.project=" + filepath.Join(c.Dir, ".todo.json"),
	} {
		AssertContains(t, got, line)
	}

	AssertNotContains(t, got, "source.global")
}
