// internal/app/features/groups/view.go
package groups

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListMine handles GET /dapat: the caller's groups with member summaries.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.ListByMember(ctx, uid)
	if err != nil {
		httperr.Internal(w, h.Log, "group list failed", err, zap.String("user_id", uid.Hex()))
		return
	}
	views, err := h.expandMembers(ctx, list)
	if err != nil {
		httperr.Internal(w, h.Log, "group member lookup failed", err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{"groups": views})
}

// Get handles GET /dapat/{id}: one group with members and full notes.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadForMember(ctx, w, chi.URLParam(r, "id"), uid)
	if !ok {
		return
	}
	members, err := h.Users.ListSummaries(ctx, g.MemberIDs)
	if err != nil {
		httperr.Internal(w, h.Log, "group member lookup failed", err)
		return
	}
	notes, err := h.Notes.ListByIDs(ctx, g.NoteIDs)
	if err != nil {
		httperr.Internal(w, h.Log, "group notes lookup failed", err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{"group": newGroupView(g, members, notes)})
}

// ListNotes handles GET /group/notes/{id}.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, ok := h.loadForMember(ctx, w, chi.URLParam(r, "id"), uid)
	if !ok {
		return
	}
	notes, err := h.Notes.ListByIDs(ctx, g.NoteIDs)
	if err != nil {
		httperr.Internal(w, h.Log, "group notes lookup failed", err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]any{"notes": notes})
}
