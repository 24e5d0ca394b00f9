// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from config files, NOTEKU_* environment variables, or flags
// (see LoadConfig). WAFFLE's CoreConfig covers ports, TLS, logging and CORS;
// everything the notes service itself needs lives here and is passed to
// every lifecycle hook.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Realtime presence and fan-out: "memory" for one instance, "redis" to
	// share presence and broadcast across instances.
	PresenceBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisChannel    string // pub/sub channel for the realtime bus
	RedisPrefix     string // key prefix for presence sets

	// Tokens
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenIssuer        string

	// Refresh-token cookie
	CookieKey    string // signs and encrypts the cookie; at least 32 characters
	CookieName   string
	CookieDomain string // blank means current host

	// Email/SMTP. An empty host logs emails instead of sending them.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Password reset
	BaseURL              string // prefix for emailed reset links
	ResetTokenExpiry     time.Duration
	ResetCleanupInterval time.Duration

	// Login and forgot-password rate limits
	LoginIPLimit     int
	LoginIPWindow    time.Duration
	LoginEmailLimit  int
	LoginEmailWindow time.Duration

	// Audit destinations: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogGroup string

	// Websocket transport
	WSWriteWait      time.Duration
	WSPongWait       time.Duration
	WSMaxMessageSize int64
	WSSendBuffer     int
	WSAllowedOrigins []string

	// I/O timeouts (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutEdit   time.Duration
}
