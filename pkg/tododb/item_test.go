package tododb_test

import (
	"errors"
	"testing"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

func Test_ID_Is_Unsaved_When_Zero(t *testing.T) {
	t.Parallel()

	var id tododb.ID

	if _, ok := id.Get(); ok {
		t.Fatal("zero ID reports saved")
	}

	if id.String() != "unsaved" {
		t.Fatalf("String() = %q", id.String())
	}

	n, ok := tododb.SavedID(42).Get()
	if !ok || n != 42 {
		t.Fatalf("SavedID(42).Get() = %d, %v", n, ok)
	}
}

func Test_NewItem_Is_Blank_And_Unsaved(t *testing.T) {
	t.Parallel()

	it := tododb.NewItem()

	if it.ID.IsSaved() || it.Title != "" {
		t.Fatalf("NewItem() = %+v", it)
	}

	if it.Description == nil || *it.Description != "" {
		t.Fatalf("NewItem().Description = %v, want empty string", it.Description)
	}
}

func Test_Validate_Returns_MissingTitle_When_Title_Empty(t *testing.T) {
	t.Parallel()

	err := tododb.NewItem().Validate()

	var vErr *tododb.ValidationError
	if !errors.As(err, &vErr) || vErr.Reason != tododb.MissingTitle {
		t.Fatalf("Validate() = %v, want MissingTitle", err)
	}

	if !errors.Is(err, tododb.ErrValidation) {
		t.Fatalf("Validate() = %v, want ErrValidation", err)
	}

	if err := item("x").Validate(); err != nil {
		t.Fatalf("Validate() with title = %v", err)
	}
}

func Test_Equal_Distinguishes_Nil_And_Empty_Description(t *testing.T) {
	t.Parallel()

	a := tododb.TodoItem{Title: "a"}
	b := tododb.TodoItem{Title: "a", Description: tododb.Text("")}

	if a.Equal(b) || b.Equal(a) {
		t.Fatal("nil and empty description compare equal")
	}

	if !b.Equal(tododb.TodoItem{Title: "a", Description: tododb.Text("")}) {
		t.Fatal("equal items compare unequal")
	}

	c := b
	c.ID = tododb.SavedID(1)

	if b.Equal(c) {
		t.Fatal("items with different ids compare equal")
	}
}

func Test_StorageError_Formats_Op_And_Item_When_Printed(t *testing.T) {
	t.Parallel()

	err := &tododb.StorageError{Op: "save", ItemID: tododb.SavedID(3), Err: errors.New("disk full")}

	if got, want := err.Error(), "disk full (op=save item_id=3)"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, tododb.ErrStorage) {
		t.Fatal("StorageError does not match ErrStorage")
	}
}
