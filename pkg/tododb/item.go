package tododb

import (
	"math/rand/v2"
	"strconv"
)

// ID is the identity of a [TodoItem].
//
// The zero value is an unsaved identity. Saved identities are created only by
// the store (or by [SavedID] when rebuilding an item from outside input), so
// an item that was never persisted cannot be mistaken for a stored row.
type ID struct {
	n     int64
	saved bool
}

// SavedID returns the identity of the stored row with primary key n.
func SavedID(n int64) ID {
	return ID{n: n, saved: true}
}

// Get returns the primary key and true for a saved identity.
func (id ID) Get() (int64, bool) {
	return id.n, id.saved
}

// IsSaved reports whether id refers to a stored row.
func (id ID) IsSaved() bool {
	return id.saved
}

// String returns the key in decimal, or "unsaved".
func (id ID) String() string {
	if !id.saved {
		return "unsaved"
	}

	return strconv.FormatInt(id.n, 10)
}

// TodoItem is one entry of the todo list.
//
// A nil Description means "no description" and is stored as NULL; it is
// distinct from an empty description.
type TodoItem struct {
	ID          ID
	Title       string
	Description *string
}

// NewItem returns a blank unsaved item, ready to be filled in by an editor.
func NewItem() TodoItem {
	return TodoItem{Description: Text("")}
}

// Text returns a pointer to s, for building descriptions inline.
func Text(s string) *string {
	return &s
}

// Validate reports whether the item may be persisted.
func (it TodoItem) Validate() error {
	if it.Title == "" {
		return &ValidationError{Reason: MissingTitle}
	}

	return nil
}

// Equal reports whether both items have the same identity, title and
// description. A nil description never equals a present one.
func (it TodoItem) Equal(other TodoItem) bool {
	if it.ID != other.ID || it.Title != other.Title {
		return false
	}

	if it.Description == nil || other.Description == nil {
		return it.Description == nil && other.Description == nil
	}

	return *it.Description == *other.Description
}

// Seed selects the data inserted by [DB.SeedIfEmpty].
type Seed int

const (
	// SeedFixtures inserts a fixed, known list of eight items.
	SeedFixtures Seed = iota
	// SeedRandom inserts eight items with titles picked at random.
	// It requires Config.Demo.
	SeedRandom
)

func (s Seed) String() string {
	switch s {
	case SeedFixtures:
		return "fixtures"
	case SeedRandom:
		return "random"
	default:
		return "seed(" + strconv.Itoa(int(s)) + ")"
	}
}

const seedCount = 8

var fixtureTitles = [seedCount]string{
	"Arthur", "Barbara", "Craig", "David",
	"Elena", "Frederik", "Gilbert", "Henriette",
}

var randomTitles = []string{"One", "Two", "Three", "Four", "Five"}

func (s Seed) items(rng *rand.Rand) ([]TodoItem, error) {
	items := make([]TodoItem, 0, seedCount)

	switch s {
	case SeedFixtures:
		for _, title := range fixtureTitles {
			items = append(items, TodoItem{Title: title})
		}
	case SeedRandom:
		for range seedCount {
			title := randomTitles[rng.IntN(len(randomTitles))]
			items = append(items, TodoItem{Title: title, Description: Text("")})
		}
	default:
		return nil, &ValidationError{Reason: UnknownSeed}
	}

	return items, nil
}
