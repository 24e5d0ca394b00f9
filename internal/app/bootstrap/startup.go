// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/noteku/internal/app/features/socket"
	"github.com/dalemusser/noteku/internal/app/realtime"
	"github.com/dalemusser/noteku/internal/app/store/audit"
	passwordresets "github.com/dalemusser/noteku/internal/app/store/passwordresets"
	"github.com/dalemusser/noteku/internal/app/system/auditlog"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/htmlsanitize"
	"github.com/dalemusser/noteku/internal/app/system/mailer"
	"github.com/dalemusser/noteku/internal/app/system/ratelimit"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/dalemusser/noteku/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the long-lived collaborators built once in Startup and used
// by BuildHandler and Shutdown.
type services struct {
	tokens  *auth.TokenManager
	cookies *auth.CookieManager
	limiter *ratelimit.AuthLimiter
	mail    mailer.Sender
	audit   *auditlog.Logger
	hub     *realtime.Hub
	sockets *socket.Handler
	cleanup *workers.ResetCleanup

	stopBus context.CancelFunc
	busDone chan struct{}
}

var (
	svcMu sync.Mutex
	svc   *services
)

func current() (*services, error) {
	svcMu.Lock()
	defer svcMu.Unlock()
	if svc == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}
	return svc, nil
}

// Startup runs one-time initialization after the backends are connected and
// the schema is in place: it applies timeouts, builds the token and cookie
// managers, wires the realtime hub to the configured presence backend, and
// starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Edit:   appCfg.TimeoutEdit,
	})

	s := &services{}

	s.tokens = auth.NewTokenManager(appCfg.AccessTokenSecret, appCfg.RefreshTokenSecret,
		appCfg.TokenIssuer, appCfg.AccessTokenTTL, appCfg.RefreshTokenTTL)

	secure := coreCfg != nil && coreCfg.Env == "prod"
	cookies, err := auth.NewCookieManager(appCfg.CookieKey, appCfg.CookieName, appCfg.CookieDomain,
		secure, appCfg.AccessTokenTTL, appCfg.RefreshTokenTTL, logger)
	if err != nil {
		logger.Error("cookie manager init failed", zap.Error(err))
		return err
	}
	s.cookies = cookies

	if appCfg.LoginIPLimit > 0 && appCfg.LoginEmailLimit > 0 {
		s.limiter = ratelimit.NewAuthLimiter(appCfg.LoginIPLimit, appCfg.LoginIPWindow,
			appCfg.LoginEmailLimit, appCfg.LoginEmailWindow)
	}

	s.mail = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	s.audit = auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Group: appCfg.AuditLogGroup,
	})

	if err := s.startRealtime(ctx, appCfg, deps, logger); err != nil {
		return err
	}

	if appCfg.ResetCleanupInterval > 0 {
		s.cleanup = workers.NewResetCleanup(passwordresets.New(deps.MongoDatabase), logger, appCfg.ResetCleanupInterval)
		s.cleanup.Start()
	}

	svcMu.Lock()
	svc = s
	svcMu.Unlock()
	return nil
}

// startRealtime builds the hub. With Redis, presence lives in Redis and
// every broadcast goes through the pub/sub channel so connections on all
// instances receive it.
func (s *services) startRealtime(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	groups, notes, status := socket.NewHubDeps(deps.MongoDatabase)
	hubDeps := realtime.HubDeps{
		Verifier: s.tokens,
		Groups:   groups,
		Notes:    notes,
		Status:   status,
		Sanitize: htmlsanitize.Sanitize,
		Logger:   logger,
	}

	if deps.Redis == nil {
		hubDeps.Presence = realtime.NewMemoryPresence()
		s.hub = realtime.NewHub(hubDeps)
		logger.Info("realtime presence in memory (single instance)")
	} else {
		hubDeps.Presence = realtime.NewRedisPresence(deps.Redis, appCfg.RedisPrefix)
		reg := realtime.NewRegistry(s.tokens)
		bus := realtime.NewRedisBus(deps.Redis, appCfg.RedisChannel, realtime.NewLocalBus(reg, logger), logger)
		s.hub = realtime.NewHubWithBus(reg, bus, hubDeps)

		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		ready := make(chan struct{})
		s.stopBus = cancel
		s.busDone = make(chan struct{})
		go func() {
			defer close(s.busDone)
			if err := bus.Run(bctx, ready); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime bus stopped", zap.Error(err))
			}
		}()
		select {
		case <-ready:
		case <-s.busDone:
			cancel()
			return fmt.Errorf("realtime bus failed to subscribe to %q", appCfg.RedisChannel)
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		}
		logger.Info("realtime presence in Redis", zap.String("channel", appCfg.RedisChannel))
	}
	s.hub.EditTimeout = timeouts.Edit()

	s.sockets = socket.NewHandler(s.hub, socket.Config{
		WriteWait:      appCfg.WSWriteWait,
		PongWait:       appCfg.WSPongWait,
		MaxMessageSize: appCfg.WSMaxMessageSize,
		SendBuffer:     appCfg.WSSendBuffer,
		AllowedOrigins: appCfg.WSAllowedOrigins,
	}, logger)
	return nil
}
