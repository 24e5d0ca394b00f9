// internal/app/features/socket/adapters.go
package socket

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/noteku/internal/app/realtime"
	groupstore "github.com/dalemusser/noteku/internal/app/store/groups"
	notestore "github.com/dalemusser/noteku/internal/app/store/notes"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// The realtime layer speaks hex ids; these adapters translate to the Mongo
// stores. A malformed id names nothing, so it maps to realtime.ErrNotFound.

// GroupLookup implements realtime.GroupLookup over the groups collection.
type GroupLookup struct {
	Groups *groupstore.Store
}

func (a GroupLookup) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	gid, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return false, realtime.ErrNotFound
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	ok, err := a.Groups.IsMember(ctx, gid, uid)
	if errors.Is(err, groupstore.ErrNotFound) {
		return false, realtime.ErrNotFound
	}
	return ok, err
}

func (a GroupLookup) HasNote(ctx context.Context, groupID, noteID string) (bool, error) {
	gid, err := primitive.ObjectIDFromHex(groupID)
	if err != nil {
		return false, realtime.ErrNotFound
	}
	nid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return false, realtime.ErrNotFound
	}
	return a.Groups.HasNote(ctx, gid, nid)
}

// NoteWriter implements realtime.NoteWriter over the notes collection.
type NoteWriter struct {
	Notes *notestore.Store
}

func (a NoteWriter) UpdateContent(ctx context.Context, noteID, content, editorID string) error {
	nid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return realtime.ErrNotFound
	}
	eid, err := primitive.ObjectIDFromHex(editorID)
	if err != nil {
		return realtime.ErrNotFound
	}
	err = a.Notes.UpdateContent(ctx, nid, content, eid)
	if errors.Is(err, notestore.ErrNotFound) {
		return realtime.ErrNotFound
	}
	return err
}

// StatusStore implements realtime.StatusStore over the users collection.
type StatusStore struct {
	Users *userstore.Store
}

func (a StatusStore) SetStatus(ctx context.Context, userID, status string, lastSeen time.Time) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return realtime.ErrNotFound
	}
	_, err = a.Users.SetStatus(ctx, uid, status, lastSeen)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return realtime.ErrNotFound
	}
	return err
}

// NewHubDeps builds the store-backed collaborators of a realtime hub over db.
func NewHubDeps(db *mongo.Database) (realtime.GroupLookup, realtime.NoteWriter, realtime.StatusStore) {
	return GroupLookup{Groups: groupstore.New(db)},
		NoteWriter{Notes: notestore.New(db)},
		StatusStore{Users: userstore.New(db)}
}
