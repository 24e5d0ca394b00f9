// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

const (
	presenceMemory = "memory"
	presenceRedis  = "redis"

	minSecretLen = 32
)

// appConfigKeys defines the configuration keys for Noteku. Each key can be
// set in a config file (mongo_uri), as NOTEKU_MONGO_URI, or as --mongo_uri.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "noteku", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	// Realtime presence and fan-out
	{Name: "presence_backend", Default: presenceMemory, Desc: "Presence store and bus: 'memory' or 'redis'"},
	{Name: "redis_addr", Default: "", Desc: "Redis address (host:port); required for the redis backend"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "redis_channel", Default: "noteku:realtime", Desc: "Redis pub/sub channel for realtime events"},
	{Name: "redis_prefix", Default: "noteku:presence", Desc: "Redis key prefix for presence sets"},

	// Tokens
	{Name: "access_token_secret", Default: "dev-only-access-secret-change-me-0123456789", Desc: "HMAC secret for access tokens"},
	{Name: "refresh_token_secret", Default: "dev-only-refresh-secret-change-me-0123456789", Desc: "HMAC secret for refresh tokens"},
	{Name: "access_token_ttl", Default: "15m", Desc: "Access token lifetime"},
	{Name: "refresh_token_ttl", Default: "168h", Desc: "Refresh token lifetime"},
	{Name: "token_issuer", Default: "noteku", Desc: "Issuer claim for tokens"},

	// Refresh cookie
	{Name: "cookie_key", Default: "dev-only-cookie-key-change-me-0123456789ABCDEF", Desc: "Cookie signing key (must be strong in production)"},
	{Name: "cookie_name", Default: "noteku-refresh", Desc: "Refresh-token cookie name"},
	{Name: "cookie_domain", Default: "", Desc: "Cookie domain (blank means current host)"},

	// Email/SMTP
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs emails instead of sending)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@noteku.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Noteku", Desc: "From display name"},

	// Password reset
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for emailed links"},
	{Name: "reset_token_expiry", Default: "1h", Desc: "Password reset token lifetime"},
	{Name: "reset_cleanup_interval", Default: "15m", Desc: "How often expired reset tokens are purged"},

	// Rate limits
	{Name: "login_ip_limit", Default: 20, Desc: "Login/forgot-password attempts per client IP per window"},
	{Name: "login_ip_window", Default: "15m", Desc: "Window for the per-IP limit"},
	{Name: "login_email_limit", Default: 5, Desc: "Login/forgot-password attempts per email per window"},
	{Name: "login_email_window", Default: "15m", Desc: "Window for the per-email limit"},

	// Audit logging
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_group", Default: "all", Desc: "Group event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Websocket transport
	{Name: "ws_write_wait", Default: "10s", Desc: "Deadline for one websocket write"},
	{Name: "ws_pong_wait", Default: "60s", Desc: "Peer silence that closes a websocket"},
	{Name: "ws_max_message_size", Default: 1048576, Desc: "Largest inbound websocket frame in bytes"},
	{Name: "ws_send_buffer", Default: 64, Desc: "Outbound queue length per websocket"},
	{Name: "ws_allowed_origins", Default: "", Desc: "Comma-separated allowed websocket origins (blank allows any)"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "List and multi-step operation timeout"},
	{Name: "timeout_edit", Default: "5s", Desc: "Collaborative edit persistence timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// config.LoadWithAppConfig merges .env files, config files, WAFFLE_* and
// NOTEKU_* environment variables and flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, v, err := config.LoadWithAppConfig(logger, "NOTEKU", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		PresenceBackend: strings.ToLower(strings.TrimSpace(v.String("presence_backend"))),
		RedisAddr:       v.String("redis_addr"),
		RedisPassword:   v.String("redis_password"),
		RedisDB:         v.Int("redis_db"),
		RedisChannel:    v.String("redis_channel"),
		RedisPrefix:     v.String("redis_prefix"),

		AccessTokenSecret:  v.String("access_token_secret"),
		RefreshTokenSecret: v.String("refresh_token_secret"),
		AccessTokenTTL:     v.Duration("access_token_ttl", 15*time.Minute),
		RefreshTokenTTL:    v.Duration("refresh_token_ttl", 7*24*time.Hour),
		TokenIssuer:        v.String("token_issuer"),

		CookieKey:    v.String("cookie_key"),
		CookieName:   v.String("cookie_name"),
		CookieDomain: v.String("cookie_domain"),

		MailSMTPHost: v.String("mail_smtp_host"),
		MailSMTPPort: v.Int("mail_smtp_port"),
		MailSMTPUser: v.String("mail_smtp_user"),
		MailSMTPPass: v.String("mail_smtp_pass"),
		MailFrom:     v.String("mail_from"),
		MailFromName: v.String("mail_from_name"),

		BaseURL:              v.String("base_url"),
		ResetTokenExpiry:     v.Duration("reset_token_expiry", time.Hour),
		ResetCleanupInterval: v.Duration("reset_cleanup_interval", 15*time.Minute),

		LoginIPLimit:     v.Int("login_ip_limit"),
		LoginIPWindow:    v.Duration("login_ip_window", 15*time.Minute),
		LoginEmailLimit:  v.Int("login_email_limit"),
		LoginEmailWindow: v.Duration("login_email_window", 15*time.Minute),

		AuditLogAuth:  v.String("audit_log_auth"),
		AuditLogGroup: v.String("audit_log_group"),

		WSWriteWait:      v.Duration("ws_write_wait", 10*time.Second),
		WSPongWait:       v.Duration("ws_pong_wait", 60*time.Second),
		WSMaxMessageSize: int64(v.Int("ws_max_message_size")),
		WSSendBuffer:     v.Int("ws_send_buffer"),
		WSAllowedOrigins: splitList(v.String("ws_allowed_origins")),

		TimeoutPing:   v.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  v.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: v.Duration("timeout_medium", 10*time.Second),
		TimeoutEdit:   v.Duration("timeout_edit", 5*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that cannot start, such as a
// malformed Mongo URI or reset-link base URL, an unknown presence backend,
// a redis backend without an address, or weak secrets in production.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if !urlutil.IsValidAbsHTTPURL(appCfg.BaseURL) {
		return fmt.Errorf("base_url %q must be an absolute http(s) URL", appCfg.BaseURL)
	}

	switch appCfg.PresenceBackend {
	case presenceMemory:
	case presenceRedis:
		if appCfg.RedisAddr == "" {
			return errors.New("presence_backend=redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown presence_backend %q (want %q or %q)", appCfg.PresenceBackend, presenceMemory, presenceRedis)
	}

	if appCfg.AccessTokenSecret == appCfg.RefreshTokenSecret {
		return errors.New("access_token_secret and refresh_token_secret must differ")
	}

	secrets := map[string]string{
		"access_token_secret":  appCfg.AccessTokenSecret,
		"refresh_token_secret": appCfg.RefreshTokenSecret,
		"cookie_key":           appCfg.CookieKey,
	}
	for name, s := range secrets {
		if len(s) >= minSecretLen {
			continue
		}
		if coreCfg != nil && coreCfg.Env == "prod" {
			return fmt.Errorf("%s must be at least %d characters", name, minSecretLen)
		}
		logger.Warn("weak secret; acceptable only outside production", zap.String("key", name))
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.CookieKey, "dev-only") {
		return errors.New("cookie_key must be changed in production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
