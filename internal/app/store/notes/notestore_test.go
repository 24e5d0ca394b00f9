package notestore_test

import (
	"testing"

	notestore "github.com/dalemusser/noteku/internal/app/store/notes"
	"github.com/dalemusser/noteku/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	n, err := store.Create(ctx, owner, "  Groceries ", "milk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Title != "Groceries" {
		t.Errorf("Title = %q, want trimmed", n.Title)
	}
	_, _ = store.Create(ctx, owner, "Second", "")
	_, _ = store.Create(ctx, other, "Not mine", "")

	list, err := store.ListByUser(ctx, owner)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notes, want 2", len(list))
	}
	for _, got := range list {
		if got.UserID != owner {
			t.Errorf("note %v belongs to %v", got.ID, got.UserID)
		}
	}

	none, err := store.ListByUser(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}

func TestStore_OwnerScopedAccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	n, _ := store.Create(ctx, owner, "Title", "body")

	if _, err := store.GetForUser(ctx, n.ID, intruder); err != notestore.ErrNotFound {
		t.Errorf("GetForUser by intruder: err = %v, want ErrNotFound", err)
	}
	if _, err := store.UpdateForUser(ctx, n.ID, intruder, "x", "y"); err != notestore.ErrNotFound {
		t.Errorf("UpdateForUser by intruder: err = %v, want ErrNotFound", err)
	}
	if err := store.DeleteForUser(ctx, n.ID, intruder); err != notestore.ErrNotFound {
		t.Errorf("DeleteForUser by intruder: err = %v, want ErrNotFound", err)
	}

	updated, err := store.UpdateForUser(ctx, n.ID, owner, "New", "new body")
	if err != nil {
		t.Fatalf("UpdateForUser: %v", err)
	}
	if updated.Title != "New" || updated.Content != "new body" {
		t.Errorf("updated = %+v", updated)
	}

	if err := store.DeleteForUser(ctx, n.ID, owner); err != nil {
		t.Fatalf("DeleteForUser: %v", err)
	}
	if _, err := store.GetForUser(ctx, n.ID, owner); err != notestore.ErrNotFound {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	editor := primitive.NewObjectID()
	n, _ := store.Create(ctx, owner, "Shared", "v1")

	if err := store.UpdateContent(ctx, n.ID, "v2", editor); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	got, err := store.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Content != "v2" {
		t.Errorf("Content = %q, want v2", got.Content)
	}
	if got.LastEditedBy == nil || *got.LastEditedBy != editor {
		t.Errorf("LastEditedBy = %v, want %v", got.LastEditedBy, editor)
	}
	if got.UserID != owner {
		t.Error("owner must not change on collaborative edit")
	}

	if err := store.UpdateContent(ctx, primitive.NewObjectID(), "x", editor); err != notestore.ErrNotFound {
		t.Errorf("missing note: err = %v, want ErrNotFound", err)
	}
}

func TestStore_ListByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	a, _ := store.Create(ctx, owner, "A", "")
	b, _ := store.Create(ctx, owner, "B", "")
	_, _ = store.Create(ctx, owner, "C", "")

	got, err := store.ListByIDs(ctx, []primitive.ObjectID{b.ID, a.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d notes, want 2", len(got))
	}
	if got[0].ID != a.ID || got[1].ID != b.ID {
		t.Error("expected creation order")
	}
}
