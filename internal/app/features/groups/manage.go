// internal/app/features/groups/manage.go
package groups

import (
	"context"
	"errors"
	"net/http"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	groupstore "github.com/dalemusser/noteku/internal/app/store/groups"
	notestore "github.com/dalemusser/noteku/internal/app/store/notes"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/htmlsanitize"
	"github.com/dalemusser/noteku/internal/app/system/inputval"
	"github.com/dalemusser/noteku/internal/app/system/normalize"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type createGroupInput struct {
	Name string `json:"name" validate:"required,max=200" label:"Name"`
}

type addUserInput struct {
	GroupID string `json:"groupId" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

// addNoteInput shares an existing note (NoteID) or creates one from Title
// and Content.
type addNoteInput struct {
	GroupID string `json:"groupId" validate:"required"`
	NoteID  string `json:"noteId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type groupResponse struct {
	Message string       `json:"message"`
	Group   models.Group `json:"group"`
}

type noteSharedResponse struct {
	Message string       `json:"message"`
	Group   models.Group `json:"group"`
	Note    models.Note  `json:"note"`
}

// Create handles POST /create. The caller becomes the first member.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	var in createGroupInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	in.Name = normalize.Title(htmlsanitize.StripTags(in.Name))
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.Create(ctx, in.Name, uid, nil)
	if err != nil {
		if errors.Is(err, groupstore.ErrEmptyName) {
			httperr.BadRequest(w, err.Error())
			return
		}
		httperr.Internal(w, h.Log, "group create failed", err, zap.String("user_id", uid.Hex()))
		return
	}
	h.AuditLog.GroupCreated(ctx, r, uid, g.ID, g.Name)
	httperr.WriteJSON(w, http.StatusCreated, g)
}

// AddUser handles POST /add-user. Only members may add others.
func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	var in addUserInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadForMember(ctx, w, in.GroupID, uid)
	if !ok {
		return
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.NotFound(w, "user not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "add-user: user lookup failed", err)
		return
	}

	updated, err := h.Groups.AddMember(ctx, g.ID, u.ID)
	if errors.Is(err, groupstore.ErrNotFound) {
		httperr.NotFound(w, "group not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "add-user: update failed", err, zap.String("group_id", g.ID.Hex()))
		return
	}
	h.AuditLog.MemberAdded(ctx, r, uid, g.ID, u.ID)
	httperr.WriteJSON(w, http.StatusOK, groupResponse{Message: "user added to group", Group: updated})
}

// AddNote handles POST /add-note. An existing note must belong to the
// caller; otherwise a new note owned by the caller is created.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	var in addNoteInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadForMember(ctx, w, in.GroupID, uid)
	if !ok {
		return
	}

	var note models.Note
	if in.NoteID != "" {
		nid, err := primitive.ObjectIDFromHex(in.NoteID)
		if err != nil {
			httperr.NotFound(w, "note not found")
			return
		}
		note, err = h.Notes.GetForUser(ctx, nid, uid)
		if errors.Is(err, notestore.ErrNotFound) {
			httperr.NotFound(w, "note not found")
			return
		}
		if err != nil {
			httperr.Internal(w, h.Log, "add-note: note lookup failed", err)
			return
		}
	} else {
		title := normalize.Title(htmlsanitize.StripTags(in.Title))
		if title == "" || in.Content == "" {
			httperr.BadRequest(w, "noteId or title and content are required")
			return
		}
		var err error
		note, err = h.Notes.Create(ctx, uid, title, htmlsanitize.Sanitize(in.Content))
		if err != nil {
			httperr.Internal(w, h.Log, "add-note: note create failed", err)
			return
		}
	}

	updated, err := h.Groups.AddNote(ctx, g.ID, note.ID)
	if errors.Is(err, groupstore.ErrNotFound) {
		httperr.NotFound(w, "group not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "add-note: update failed", err, zap.String("group_id", g.ID.Hex()))
		return
	}
	h.AuditLog.NoteShared(ctx, r, uid, g.ID, note.ID)
	httperr.WriteJSON(w, http.StatusOK, noteSharedResponse{Message: "note added to group", Group: updated, Note: note})
}

// loadForMember writes 404 for a missing group and 403 for a non-member.
func (h *Handler) loadForMember(ctx context.Context, w http.ResponseWriter, groupHex string, uid primitive.ObjectID) (models.Group, bool) {
	gid, err := primitive.ObjectIDFromHex(groupHex)
	if err != nil {
		httperr.NotFound(w, "group not found")
		return models.Group{}, false
	}
	g, err := h.Groups.GetByID(ctx, gid)
	if errors.Is(err, groupstore.ErrNotFound) {
		httperr.NotFound(w, "group not found")
		return models.Group{}, false
	}
	if err != nil {
		httperr.Internal(w, h.Log, "group lookup failed", err, zap.String("group_id", groupHex))
		return models.Group{}, false
	}
	if !g.HasMember(uid) {
		httperr.Forbidden(w, "you are not a member of this group")
		return models.Group{}, false
	}
	return g, true
}

func callerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httperr.Unauthorized(w, "unauthorized")
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		httperr.Unauthorized(w, "unauthorized")
		return primitive.NilObjectID, false
	}
	return oid, true
}
