package passwordresets_test

import (
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/app/store/passwordresets"
	"github.com/dalemusser/noteku/internal/testutil"
)

func TestStore_UpsertReplacesEarlierToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordresets.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Upsert(ctx, "A@Example.com", "first", time.Hour); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, "a@example.com", "second", time.Hour); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := store.GetValid(ctx, "first"); err != passwordresets.ErrInvalidToken {
		t.Errorf("first token: err = %v, want ErrInvalidToken", err)
	}
	pr, err := store.GetValid(ctx, "second")
	if err != nil {
		t.Fatalf("GetValid: %v", err)
	}
	if pr.Email != "a@example.com" {
		t.Errorf("Email = %q", pr.Email)
	}

	n, _ := db.Collection("password_resets").CountDocuments(ctx, map[string]any{})
	if n != 1 {
		t.Errorf("documents = %d, want 1", n)
	}
}

func TestStore_ExpiredTokenRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordresets.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Upsert(ctx, "old@example.com", "stale", -time.Minute)
	_ = store.Upsert(ctx, "new@example.com", "fresh", time.Hour)

	if _, err := store.GetValid(ctx, "stale"); err != passwordresets.ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}

	removed, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.GetValid(ctx, "fresh"); err != nil {
		t.Errorf("fresh token should survive: %v", err)
	}
}

func TestStore_DeleteByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordresets.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Upsert(ctx, "x@example.com", "tok", time.Hour)
	if err := store.DeleteByEmail(ctx, "X@example.com"); err != nil {
		t.Fatalf("DeleteByEmail: %v", err)
	}
	if _, err := store.GetValid(ctx, "tok"); err != passwordresets.ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
