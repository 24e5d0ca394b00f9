// internal/app/features/authapi/account.go
package authapi

import (
	"context"
	"errors"
	"net/http"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/inputval"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type registerInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email_addr"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=female male"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginResponse struct {
	Message     string   `json:"message"`
	AccessToken string   `json:"accessToken"`
	User        userView `json:"user"`
}

type tokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
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

	u, err := h.Users.Create(ctx, models.User{Username: in.Username, Email: in.Email, Role: in.Role}, in.Password)
	switch {
	case errors.Is(err, userstore.ErrDuplicateUser):
		httperr.BadRequest(w, "email or username already in use")
		return
	case errors.Is(err, userstore.ErrBadRole):
		httperr.BadRequest(w, err.Error())
		return
	case err != nil:
		httperr.Internal(w, h.Log, "register: create user failed", err)
		return
	}

	h.AuditLog.Registered(ctx, r, u.ID, u.Email)
	httperr.WriteJSON(w, http.StatusCreated, httperr.Body{Message: "registration successful"})
}

// Login handles POST /login. It returns an access token in the body, sets
// the access and refresh cookies and records the refresh token's hash.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, in.Email)
			httperr.TooManyRequests(w, reason)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, in.Email)
		httperr.BadRequest(w, "user not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "login: lookup failed", err)
		return
	}
	if !userstore.CheckPassword(u, in.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID)
		httperr.BadRequest(w, "wrong password")
		return
	}

	access, err := h.Tokens.GenerateAccessToken(u.ID.Hex(), u.Username)
	if err != nil {
		httperr.Internal(w, h.Log, "login: sign access token failed", err)
		return
	}
	refresh, err := h.Tokens.GenerateRefreshToken(u.ID.Hex(), u.Username)
	if err != nil {
		httperr.Internal(w, h.Log, "login: sign refresh token failed", err)
		return
	}
	if err := h.Users.SetRefreshTokenHash(ctx, u.ID, auth.HashToken(refresh)); err != nil {
		httperr.Internal(w, h.Log, "login: store refresh token failed", err)
		return
	}
	if err := h.Cookies.SetTokens(w, r, access, refresh); err != nil {
		httperr.Internal(w, h.Log, "login: set cookies failed", err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	httperr.WriteJSON(w, http.StatusOK, loginResponse{
		Message:     "login successful",
		AccessToken: access,
		User:        userView{Username: u.Username, Email: u.Email},
	})
}

// Refresh handles POST /refresh. A refresh token that is unknown or fails
// verification is revoked and its cookie cleared.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Cookies.RefreshToken(r)
	if err != nil {
		httperr.Unauthorized(w, "refresh token missing")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByRefreshTokenHash(ctx, auth.HashToken(raw))
	if errors.Is(err, mongo.ErrNoDocuments) {
		_ = h.Cookies.Clear(w, r)
		httperr.Forbidden(w, "refresh token invalid")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "refresh: lookup failed", err)
		return
	}

	id, err := h.Tokens.VerifyRefreshToken(raw)
	if err != nil || id.UserID != u.ID.Hex() {
		if cerr := h.Users.ClearRefreshToken(ctx, u.ID); cerr != nil {
			h.Log.Warn("refresh: revoke failed", zap.String("user_id", u.ID.Hex()), zap.Error(cerr))
		}
		_ = h.Cookies.Clear(w, r)
		httperr.Forbidden(w, "refresh token invalid")
		return
	}

	access, err := h.Tokens.GenerateAccessToken(u.ID.Hex(), u.Username)
	if err != nil {
		httperr.Internal(w, h.Log, "refresh: sign access token failed", err)
		return
	}
	h.Cookies.SetAccessToken(w, access)
	h.AuditLog.TokenRefreshed(ctx, r, u.ID)

	httperr.WriteJSON(w, http.StatusOK, tokenResponse{Message: "token refreshed", AccessToken: access})
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httperr.Unauthorized(w, "not logged in")
		return
	}
	oid, err := objectID(su.ID)
	if err != nil {
		httperr.Unauthorized(w, "not logged in")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.ClearRefreshToken(ctx, oid); err != nil {
		httperr.Internal(w, h.Log, "logout: revoke failed", err, zap.String("user_id", su.ID))
		return
	}
	if err := h.Cookies.Clear(w, r); err != nil {
		h.Log.Warn("logout: clear cookies failed", zap.Error(err))
	}
	h.AuditLog.Logout(ctx, r, su.ID)

	httperr.Message(w, http.StatusOK, "logout successful")
}

// Name handles GET /name.
func (h *Handler) Name(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httperr.Unauthorized(w, "unauthorized")
		return
	}
	httperr.WriteJSON(w, http.StatusOK, map[string]string{"name": su.Username, "role": su.Role})
}
