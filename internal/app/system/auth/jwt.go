package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID   string
	Username string
}

// TokenManager issues and verifies HS256 access and refresh tokens.
// Access and refresh tokens are signed with different secrets so one can
// never be replayed as the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager creates a token manager. Secrets should be at least 32 characters.
func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessTTL returns the lifetime of issued access tokens.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the lifetime of issued refresh tokens.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

type claims struct {
	jwt.RegisteredClaims
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// GenerateAccessToken signs a short-lived token for userID.
func (m *TokenManager) GenerateAccessToken(userID, username string) (string, error) {
	return m.sign(m.accessSecret, m.accessTTL, userID, username)
}

// GenerateRefreshToken signs a long-lived token for userID.
func (m *TokenManager) GenerateRefreshToken(userID, username string) (string, error) {
	return m.sign(m.refreshSecret, m.refreshTTL, userID, username)
}

// Verify validates an access token. It satisfies the realtime token verifier.
func (m *TokenManager) Verify(token string) (Identity, error) {
	return m.parse(m.accessSecret, token)
}

// VerifyRefreshToken validates a refresh token.
func (m *TokenManager) VerifyRefreshToken(token string) (Identity, error) {
	return m.parse(m.refreshSecret, token)
}

func (m *TokenManager) sign(secret []byte, ttl time.Duration, userID, username string) (string, error) {
	now := m.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ID:       userID,
		Username: username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(secret []byte, tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.ID, Username: c.Username}, nil
}

// HashToken returns the hex SHA-256 of a token, used for storage at rest.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
