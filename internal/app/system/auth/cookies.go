package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const refreshTokenKey = "refresh_token"

// ErrNoRefreshToken is returned when the request carries no usable refresh cookie.
var ErrNoRefreshToken = errors.New("refresh token not provided")

// CookieManager keeps the refresh token in a signed, HttpOnly session cookie
// and the access token in a plain cookie for browser clients.
type CookieManager struct {
	store      *sessions.CookieStore
	name       string
	refreshTTL time.Duration
	accessTTL  time.Duration
	log        *zap.Logger
}

// NewCookieManager initializes the cookie store using the provided key and domain.
// The secure flag controls the Secure attribute and SameSite mode.
//
// In production (secure=true), cookies are Secure + SameSite=None so a
// separately hosted frontend can send them. In local dev over
// http://localhost, use secure=false so cookies are accepted.
func NewCookieManager(key, name, domain string, secure bool, accessTTL, refreshTTL time.Duration, logger *zap.Logger) (*CookieManager, error) {
	if key == "" {
		return nil, fmt.Errorf("cookie key is empty; provide ≥32 random chars")
	}
	if len(key) < 32 {
		logger.Warn("cookie key is short; 32+ chars recommended",
			zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	} else {
		store.Options.SameSite = http.SameSiteLaxMode
	}

	logger.Info("cookie store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &CookieManager{
		store:      store,
		name:       name,
		refreshTTL: refreshTTL,
		accessTTL:  accessTTL,
		log:        logger,
	}, nil
}

// SetTokens writes both cookies.
func (m *CookieManager) SetTokens(w http.ResponseWriter, r *http.Request, accessToken, refreshToken string) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		m.logDecodeError(err)
	}
	sess.Values[refreshTokenKey] = refreshToken
	if err := sess.Save(r, w); err != nil {
		return err
	}
	m.SetAccessToken(w, accessToken)
	return nil
}

// SetAccessToken writes only the access-token cookie.
func (m *CookieManager) SetAccessToken(w http.ResponseWriter, accessToken string) {
	opts := m.store.Options
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(m.accessTTL.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	})
}

// RefreshToken returns the refresh token stored in the request's cookie.
func (m *CookieManager) RefreshToken(r *http.Request) (string, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		m.logDecodeError(err)
		return "", ErrNoRefreshToken
	}
	tok, _ := sess.Values[refreshTokenKey].(string)
	if tok == "" {
		return "", ErrNoRefreshToken
	}
	return tok, nil
}

// Clear deletes both cookies.
func (m *CookieManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		m.logDecodeError(err)
	}
	delete(sess.Values, refreshTokenKey)
	sess.Options.MaxAge = -1

	opts := m.store.Options
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	})
	return sess.Save(r, w)
}

func (m *CookieManager) logDecodeError(err error) {
	if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
		m.log.Warn("refresh cookie invalid, using fresh session", zap.Error(err))
		return
	}
	m.log.Error("cookie store error", zap.Error(err))
}
