package socket

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/app/realtime"
	"github.com/dalemusser/noteku/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdapters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "alice")
	bob := fx.CreateUser(ctx, "bob")
	note := fx.CreateNote(ctx, alice.ID, "t", "c")
	group := fx.CreateGroup(ctx, "g", alice.ID, nil, []primitive.ObjectID{note.ID})
	groups, notes, status := NewHubDeps(db)

	t.Run("IsMember", func(t *testing.T) {
		if ok, err := groups.IsMember(ctx, group.ID.Hex(), alice.ID.Hex()); err != nil || !ok {
			t.Errorf("alice: ok=%v err=%v", ok, err)
		}
		if ok, err := groups.IsMember(ctx, group.ID.Hex(), bob.ID.Hex()); err != nil || ok {
			t.Errorf("bob: ok=%v err=%v", ok, err)
		}
		if _, err := groups.IsMember(ctx, "zzz", alice.ID.Hex()); !errors.Is(err, realtime.ErrNotFound) {
			t.Errorf("bad group id: %v", err)
		}
		if _, err := groups.IsMember(ctx, primitive.NewObjectID().Hex(), alice.ID.Hex()); !errors.Is(err, realtime.ErrNotFound) {
			t.Errorf("missing group: %v", err)
		}
	})

	t.Run("HasNote", func(t *testing.T) {
		if ok, err := groups.HasNote(ctx, group.ID.Hex(), note.ID.Hex()); err != nil || !ok {
			t.Errorf("attached note: ok=%v err=%v", ok, err)
		}
		if _, err := groups.HasNote(ctx, group.ID.Hex(), "bad"); !errors.Is(err, realtime.ErrNotFound) {
			t.Errorf("bad note id: %v", err)
		}
	})

	t.Run("UpdateContent", func(t *testing.T) {
		if err := notes.UpdateContent(ctx, note.ID.Hex(), "new", bob.ID.Hex()); err != nil {
			t.Errorf("update: %v", err)
		}
		if err := notes.UpdateContent(ctx, primitive.NewObjectID().Hex(), "x", bob.ID.Hex()); !errors.Is(err, realtime.ErrNotFound) {
			t.Errorf("missing note: %v", err)
		}
	})

	t.Run("SetStatus", func(t *testing.T) {
		if err := status.SetStatus(ctx, alice.ID.Hex(), realtime.StatusOnline, time.Now()); err != nil {
			t.Errorf("set status: %v", err)
		}
		if err := status.SetStatus(ctx, primitive.NewObjectID().Hex(), realtime.StatusOnline, time.Now()); !errors.Is(err, realtime.ErrNotFound) {
			t.Errorf("missing user: %v", err)
		}
	})
}
