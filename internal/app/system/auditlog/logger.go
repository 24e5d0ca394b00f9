// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/noteku/internal/app/store/audit"
	"github.com/dalemusser/noteku/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination values for Config fields.
const (
	ToAll = "all" // MongoDB + zap
	ToDB  = "db"  // MongoDB only
	ToLog = "log" // zap only
	ToOff = "off" // disabled
)

// Config holds audit logging configuration per event category.
type Config struct {
	Auth  string
	Group string
}

// Logger records audit events to MongoDB (via audit.Store) and to zap.
// A nil *Logger is a valid no-op logger.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event to the destinations configured for its category.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := ToAll
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryGroup:
		setting = l.config.Group
	}
	if setting == "" {
		setting = ToAll
	}
	if setting == ToOff {
		return
	}

	if setting == ToAll || setting == ToLog {
		l.logToZap(event)
	}
	if (setting == ToAll || setting == ToDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool, reason string) audit.Event {
	return audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            ratelimit.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       success,
		FailureReason: reason,
	}
}

// --- Authentication Events ---

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventRegistered, &userID, true, "")
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID, true, "")
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedUserNotFound logs a login attempt for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedUserNotFound, nil, false, "user not found")
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

// LoginFailedWrongPassword logs a login attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventLoginFailedWrongPassword, &userID, false, "wrong password"))
}

// LoginFailedRateLimit logs a login attempt blocked by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, attemptedEmail string) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, false, "rate limited")
	e.Details = map[string]string{"attempted_email": attemptedEmail}
	l.Log(ctx, e)
}

// Logout logs a logout. userID is empty when the refresh cookie named no user.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		uid = &oid
	}
	l.Log(ctx, authEvent(r, audit.EventLogout, uid, true, ""))
}

// TokenRefreshed logs a successful refresh-token exchange.
func (l *Logger) TokenRefreshed(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventTokenRefreshed, &userID, true, ""))
}

// PasswordResetRequested logs a forgot-password request.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(r, audit.EventPasswordResetRequested, &userID, true, ""))
}

// PasswordResetCompleted logs a password change through a reset link.
func (l *Logger) PasswordResetCompleted(ctx context.Context, r *http.Request, email string) {
	e := authEvent(r, audit.EventPasswordResetCompleted, nil, true, "")
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// --- Group Events ---

func groupEvent(r *http.Request, eventType string, actorID, groupID primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryGroup,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// GroupCreated logs a new group.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	e := groupEvent(r, audit.EventGroupCreated, actorID, groupID)
	e.Details = map[string]string{"name": name}
	l.Log(ctx, e)
}

// MemberAdded logs a user being added to a group.
func (l *Logger) MemberAdded(ctx context.Context, r *http.Request, actorID, groupID, userID primitive.ObjectID) {
	e := groupEvent(r, audit.EventMemberAddedToGroup, actorID, groupID)
	e.UserID = &userID
	l.Log(ctx, e)
}

// NoteShared logs a note being attached to a group.
func (l *Logger) NoteShared(ctx context.Context, r *http.Request, actorID, groupID, noteID primitive.ObjectID) {
	e := groupEvent(r, audit.EventNoteSharedToGroup, actorID, groupID)
	e.Details = map[string]string{"note_id": noteID.Hex()}
	l.Log(ctx, e)
}
