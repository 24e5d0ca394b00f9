package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/app/system/validators"
	"github.com/dalemusser/noteku/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "notes", "groups", "password_resets", "audit_events"} {
		if !have[want] {
			t.Errorf("collection %q not created", want)
		}
	}
}

func TestEnsureAll_RejectsInvalidDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	cases := []struct {
		name string
		coll string
		doc  bson.M
	}{
		{"user with unknown role", "users", bson.M{
			"username": "a", "username_ci": "a", "email": "a@x.com", "password_hash": "h", "role": "admin",
		}},
		{"user with bad status", "users", bson.M{
			"username": "a", "username_ci": "a", "email": "a@x.com", "password_hash": "h", "role": "female", "status": "away",
		}},
		{"note with blank title", "notes", bson.M{
			"user_id": primitive.NewObjectID(), "title": "   ", "content": "",
		}},
		{"group without members", "groups", bson.M{
			"name": "g", "note_ids": bson.A{}, "created_by": primitive.NewObjectID(),
		}},
		{"reset with short hash", "password_resets", bson.M{
			"email": "a@x.com", "token_hash": "abc", "expires_at": now,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := db.Collection(tc.coll).InsertOne(ctx, tc.doc); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	ok := bson.M{"user_id": primitive.NewObjectID(), "title": "Plan", "content": "<p>x</p>"}
	if _, err := db.Collection("notes").InsertOne(ctx, ok); err != nil {
		t.Errorf("valid note rejected: %v", err)
	}
}
