// internal/app/features/authapi/status.go
package authapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type statusInput struct {
	Status string `json:"status" validate:"required"`
}

type statusView struct {
	Username string     `json:"username"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type statusResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// UpdateStatus handles PUT /status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	oid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := httperr.DecodeJSON(r, &in); err != nil || in.Status == "" {
		httperr.BadRequest(w, "status is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.SetStatus(ctx, oid, in.Status, time.Now())
	switch {
	case errors.Is(err, userstore.ErrBadStatus):
		httperr.BadRequest(w, err.Error())
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		httperr.NotFound(w, "user not found")
		return
	case err != nil:
		httperr.Internal(w, h.Log, "status: update failed", err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, statusResponse{Message: "status updated", User: u})
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	oid, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.NotFound(w, "user not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "status: lookup failed", err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, statusView{Username: u.Username, Status: u.Status, LastSeen: u.LastSeen})
}

func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httperr.Unauthorized(w, "unauthorized")
		return primitive.NilObjectID, false
	}
	oid, err := objectID(su.ID)
	if err != nil {
		httperr.Unauthorized(w, "unauthorized")
		return primitive.NilObjectID, false
	}
	return oid, true
}

func objectID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}
