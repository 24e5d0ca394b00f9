// internal/app/features/notes/handler.go
package notes

import (
	"context"
	"errors"
	"net/http"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	notestore "github.com/dalemusser/noteku/internal/app/store/notes"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/htmlsanitize"
	"github.com/dalemusser/noteku/internal/app/system/inputval"
	"github.com/dalemusser/noteku/internal/app/system/normalize"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the owner-scoped note endpoints.
type Handler struct {
	Notes *notestore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Notes: notestore.New(db), Log: logger}
}

type createInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// updateInput fields are optional; an absent field keeps its stored value.
type updateInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type noteResponse struct {
	Message string      `json:"message"`
	Note    models.Note `json:"note"`
}

// Create handles POST /create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var in createInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	in.Title = normalize.Title(htmlsanitize.StripTags(in.Title))
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, "title and content are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.Create(ctx, owner, in.Title, htmlsanitize.Sanitize(in.Content))
	if err != nil {
		httperr.Internal(w, h.Log, "note create failed", err, zap.String("user_id", owner.Hex()))
		return
	}
	httperr.WriteJSON(w, http.StatusCreated, noteResponse{Message: "note created", Note: n})
}

// List handles GET /dapatsemua.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Notes.ListByUser(ctx, owner)
	if err != nil {
		httperr.Internal(w, h.Log, "note list failed", err, zap.String("user_id", owner.Hex()))
		return
	}
	httperr.WriteJSON(w, http.StatusOK, list)
}

// Get handles GET /dapat/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notes.GetForUser(ctx, id, owner)
	if errors.Is(err, notestore.ErrNotFound) {
		httperr.NotFound(w, "note not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "note get failed", err, zap.String("note_id", id.Hex()))
		return
	}
	httperr.WriteJSON(w, http.StatusOK, n)
}

// Update handles PUT /update/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var in updateInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cur, err := h.Notes.GetForUser(ctx, id, owner)
	if errors.Is(err, notestore.ErrNotFound) {
		httperr.NotFound(w, "note not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "note load failed", err, zap.String("note_id", id.Hex()))
		return
	}

	title, content := cur.Title, cur.Content
	if in.Title != nil {
		title = normalize.Title(htmlsanitize.StripTags(*in.Title))
	}
	if in.Content != nil {
		content = htmlsanitize.Sanitize(*in.Content)
	}
	if title == "" {
		httperr.BadRequest(w, "title cannot be empty")
		return
	}

	n, err := h.Notes.UpdateForUser(ctx, id, owner, title, content)
	if errors.Is(err, notestore.ErrNotFound) {
		httperr.NotFound(w, "note not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "note update failed", err, zap.String("note_id", id.Hex()))
		return
	}
	httperr.WriteJSON(w, http.StatusOK, noteResponse{Message: "note updated", Note: n})
}

// Delete handles DELETE /delete/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Notes.DeleteForUser(ctx, id, owner)
	if errors.Is(err, notestore.ErrNotFound) {
		httperr.NotFound(w, "note not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "note delete failed", err, zap.String("note_id", id.Hex()))
		return
	}
	httperr.Message(w, http.StatusOK, "note deleted")
}

func ownerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
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

// noteID treats a malformed id as a missing note.
func noteID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httperr.NotFound(w, "note not found")
		return primitive.NilObjectID, false
	}
	return oid, true
}
