// internal/app/features/authapi/handler.go
package authapi

import (
	"time"

	passwordresets "github.com/dalemusser/noteku/internal/app/store/passwordresets"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auditlog"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/mailer"
	"github.com/dalemusser/noteku/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves account, token, password-reset and status endpoints.
type Handler struct {
	Users    *userstore.Store
	Resets   *passwordresets.Store
	Tokens   *auth.TokenManager
	Cookies  *auth.CookieManager
	Limiter  *ratelimit.AuthLimiter
	Mailer   mailer.Sender
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	BaseURL  string        // prefix for emailed reset links
	SiteName string        // shown in reset emails
	ResetTTL time.Duration // lifetime of a reset token
}

// Options carries the non-collaborator settings for NewHandler.
type Options struct {
	BaseURL  string
	SiteName string
	ResetTTL time.Duration
}

// NewHandler wires a Handler over db. limiter and audit may be nil.
func NewHandler(db *mongo.Database, tokens *auth.TokenManager, cookies *auth.CookieManager,
	limiter *ratelimit.AuthLimiter, mail mailer.Sender, audit *auditlog.Logger, opts Options, logger *zap.Logger) *Handler {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.SiteName == "" {
		opts.SiteName = "Noteku"
	}
	return &Handler{
		Users:    userstore.New(db),
		Resets:   passwordresets.New(db),
		Tokens:   tokens,
		Cookies:  cookies,
		Limiter:  limiter,
		Mailer:   mail,
		AuditLog: audit,
		Log:      logger,
		BaseURL:  opts.BaseURL,
		SiteName: opts.SiteName,
		ResetTTL: opts.ResetTTL,
	}
}
