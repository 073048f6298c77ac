package tododb_test

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// -----------------------------------------------------------------------------
// Helpers shared by the tododb tests
// -----------------------------------------------------------------------------

func openFile(t *testing.T, cfg tododb.Config) *tododb.DB {
	t.Helper()

	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "data", "todo.db")
	}

	return openWith(t, cfg)
}

func openMemory(t *testing.T) *tododb.DB {
	t.Helper()

	return openWith(t, tododb.Config{Path: tododb.MemoryPath})
}

func openWith(t *testing.T, cfg tododb.Config) *tododb.DB {
	t.Helper()

	db, err := tododb.Open(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Open(%s): %v", cfg.Path, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	return db
}

// storage runs a subtest against a file database and an in-memory one.
func storage(t *testing.T, fn func(t *testing.T, db *tododb.DB)) {
	t.Helper()

	t.Run("File", func(t *testing.T) {
		t.Parallel()
		fn(t, openFile(t, tododb.Config{}))
	})

	t.Run("Memory", func(t *testing.T) {
		t.Parallel()
		fn(t, openMemory(t))
	})
}

func mustSave(t *testing.T, db *tododb.DB, item tododb.TodoItem) tododb.TodoItem {
	t.Helper()

	saved, err := db.Save(t.Context(), item)
	if err != nil {
		t.Fatalf("Save(%q): %v", item.Title, err)
	}

	return saved
}

func mustAll(t *testing.T, db *tododb.DB) []tododb.TodoItem {
	t.Helper()

	items, err := tododb.Fetch(t.Context(), db.Reader(), tododb.AllItems{})
	if err != nil {
		t.Fatalf("Fetch(AllItems): %v", err)
	}

	return items
}

func titles(items []tododb.TodoItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}

	return out
}

func item(title string) tododb.TodoItem {
	return tododb.TodoItem{Title: title, Description: tododb.Text("")}
}
