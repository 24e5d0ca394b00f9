package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AccessCookieName is the cookie carrying the access token for browser clients.
const AccessCookieName = "accessToken"

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated caller injected into r.Context().
type SessionUser struct {
	ID       string
	Username string
	Email    string
	Role     string
}

// UserFetcher loads fresh user data for a verified token so deleted
// accounts lose access immediately. Implemented by the users store adapter.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a user into the request context, bypassing token checks.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// Middleware authenticates API requests with access tokens.
type Middleware struct {
	tokens  *TokenManager
	fetcher UserFetcher
	log     *zap.Logger
}

// NewMiddleware builds the auth middleware. fetcher may be nil, in which case
// the identity in the token is trusted without a database lookup.
func NewMiddleware(tokens *TokenManager, fetcher UserFetcher, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, fetcher: fetcher, log: logger}
}

// RequireAuth rejects requests without a valid access token with 401 and
// injects the SessionUser otherwise.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		raw := TokenFromRequest(r)
		if raw == "" {
			writeUnauthorized(w, "access denied: token missing")
			return
		}

		id, err := m.tokens.Verify(raw)
		if err != nil {
			m.log.Debug("access token rejected", zap.Error(err))
			writeUnauthorized(w, "token invalid or expired")
			return
		}

		u := &SessionUser{ID: id.UserID, Username: id.Username}
		if m.fetcher != nil {
			u = m.fetcher.FetchUser(r.Context(), id.UserID)
			if u == nil {
				writeUnauthorized(w, "user not found")
				return
			}
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// TokenFromRequest extracts an access token from the Authorization header
// ("Bearer <token>") or, failing that, the access-token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
