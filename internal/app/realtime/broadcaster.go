package realtime

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// GroupLookup answers membership questions about persisted groups.
// Implementations return ErrNotFound for a group that does not exist.
type GroupLookup interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	HasNote(ctx context.Context, groupID, noteID string) (bool, error)
}

// NoteWriter persists note content. UpdateContent returns ErrNotFound when
// the note does not exist.
type NoteWriter interface {
	UpdateContent(ctx context.Context, noteID, content, editorID string) error
}

// AppliedEdit is the result of a successful edit.
type AppliedEdit struct {
	GroupID  string
	NoteID   string
	Content  string
	EditorID string
}

// Broadcaster applies collaborative edits and broadcasts them to the group.
// Concurrent edits to one note are last-write-wins.
type Broadcaster struct {
	reg      *Registry
	groups   GroupLookup
	notes    NoteWriter
	sanitize func(string) string
	bus      Emitter
	log      *zap.Logger
}

// NewBroadcaster creates an edit broadcaster. sanitize may be nil.
func NewBroadcaster(reg *Registry, groups GroupLookup, notes NoteWriter, sanitize func(string) string, bus Emitter, logger *zap.Logger) *Broadcaster {
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}
	return &Broadcaster{reg: reg, groups: groups, notes: notes, sanitize: sanitize, bus: bus, log: logger}
}

// ApplyEdit stores req.Content on the note and broadcasts note-updated to
// every connection in the group, sender included. Nothing is broadcast when
// an error is returned.
func (b *Broadcaster) ApplyEdit(ctx context.Context, c *Connection, req EditRequest) (AppliedEdit, error) {
	if _, ok := b.reg.Get(c.ID); !ok {
		return AppliedEdit{}, ErrAuth
	}
	if !b.reg.IsJoined(c.ID, req.GroupID) {
		return AppliedEdit{}, ErrUnauthorized
	}

	has, err := b.groups.HasNote(ctx, req.GroupID, req.NoteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AppliedEdit{}, ErrNotFound
		}
		return AppliedEdit{}, storeErr("group lookup", err)
	}
	if !has {
		return AppliedEdit{}, ErrNotFound
	}

	content := b.sanitize(req.Content)
	if err := b.notes.UpdateContent(ctx, req.NoteID, content, c.Identity.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return AppliedEdit{}, ErrNotFound
		}
		return AppliedEdit{}, storeErr("note update", err)
	}

	applied := AppliedEdit{
		GroupID:  req.GroupID,
		NoteID:   req.NoteID,
		Content:  content,
		EditorID: c.Identity.UserID,
	}
	out := ToGroup(req.GroupID, EventNoteUpdated, NoteUpdated{
		NoteID:   req.NoteID,
		Content:  content,
		UserID:   c.Identity.UserID,
		Username: c.Identity.Username,
	})
	if err := b.bus.Emit(ctx, out); err != nil {
		b.log.Error("note broadcast failed",
			zap.String("group_id", req.GroupID),
			zap.String("note_id", req.NoteID),
			zap.Error(err))
	}
	return applied, nil
}
