// internal/app/features/authapi/password.go
package authapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	passwordresets "github.com/dalemusser/noteku/internal/app/store/passwordresets"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/inputval"
	"github.com/dalemusser/noteku/internal/app/system/mailer"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type forgotInput struct {
	Email string `json:"email" validate:"required"`
}

type resetInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ForgotPassword handles POST /forgot-password: it stores a fresh reset
// token for the account and emails a link carrying it.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotInput
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

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, in.Email); !ok {
			httperr.TooManyRequests(w, reason)
			return
		}
	}

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.BadRequest(w, "user not found")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "forgot-password: lookup failed", err)
		return
	}

	token, err := newResetToken()
	if err != nil {
		httperr.Internal(w, h.Log, "forgot-password: token generation failed", err)
		return
	}
	if err := h.Resets.Upsert(ctx, u.Email, auth.HashToken(token), h.ResetTTL); err != nil {
		httperr.Internal(w, h.Log, "forgot-password: store token failed", err)
		return
	}

	email := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:  h.SiteName,
		Username:  u.Username,
		ResetLink: h.resetLink(token),
		ExpiresIn: humanDuration(h.ResetTTL),
	})
	email.To = u.Email
	if err := h.Mailer.Send(ctx, email); err != nil {
		httperr.Internal(w, h.Log, "forgot-password: send failed", err, zap.String("email", u.Email))
		return
	}

	h.AuditLog.PasswordResetRequested(ctx, r, u.ID)
	httperr.Message(w, http.StatusOK, "password reset email sent")
}

// ResetPassword handles POST /reset/{token}. The new password replaces the
// old one, the reset entry is consumed and the refresh token is revoked.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	var in resetInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.BadRequest(w, res.First())
		return
	}
	if token == "" {
		httperr.BadRequest(w, "invalid token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entry, err := h.Resets.GetValid(ctx, auth.HashToken(token))
	if errors.Is(err, passwordresets.ErrInvalidToken) {
		httperr.BadRequest(w, "invalid or expired token")
		return
	}
	if err != nil {
		httperr.Internal(w, h.Log, "reset: lookup failed", err)
		return
	}

	if err := h.Users.SetPasswordByEmail(ctx, entry.Email, in.NewPassword); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			_ = h.Resets.DeleteByEmail(ctx, entry.Email)
			httperr.BadRequest(w, "invalid or expired token")
			return
		}
		httperr.Internal(w, h.Log, "reset: update password failed", err)
		return
	}
	if err := h.Resets.DeleteByEmail(ctx, entry.Email); err != nil {
		h.Log.Warn("reset: delete entry failed", zap.String("email", entry.Email), zap.Error(err))
	}

	h.AuditLog.PasswordResetCompleted(ctx, r, entry.Email)
	httperr.Message(w, http.StatusOK, "password reset successful")
}

func (h *Handler) resetLink(token string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/api/v1/auth/reset/" + token
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
