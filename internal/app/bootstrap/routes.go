// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authapi "github.com/dalemusser/noteku/internal/app/features/authapi"
	errorsfeature "github.com/dalemusser/noteku/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/noteku/internal/app/features/groups"
	healthfeature "github.com/dalemusser/noteku/internal/app/features/health"
	notesfeature "github.com/dalemusser/noteku/internal/app/features/notes"
	socketfeature "github.com/dalemusser/noteku/internal/app/features/socket"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router once Startup has built the
// shared services.
//
//	/health           Mongo (and Redis) liveness
//	/api/v1/auth      accounts, tokens, password reset, status
//	/api/v1/note      owner-scoped notes
//	/api/v1/group     groups, membership, shared notes
//	/socket           realtime websocket
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	db := deps.MongoDatabase

	// RequireAuth reloads the user on each request so deleted accounts lose
	// access immediately.
	mw := auth.NewMiddleware(s.tokens, userstore.NewFetcher(db), logger)

	errorsHandler := errorsfeature.NewHandler()
	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	var rdb redis.UniversalClient
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	authHandler := authapi.NewHandler(db, s.tokens, s.cookies, s.limiter, s.mail, s.audit, authapi.Options{
		BaseURL:  appCfg.BaseURL,
		SiteName: appCfg.MailFromName,
		ResetTTL: appCfg.ResetTokenExpiry,
	}, logger)
	notesHandler := notesfeature.NewHandler(db, logger)
	groupsHandler := groupsfeature.NewHandler(db, s.audit, logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", authapi.Routes(authHandler, mw))
		api.Mount("/note", notesfeature.Routes(notesHandler, mw))
		api.Mount("/group", groupsfeature.Routes(groupsHandler, mw))
	})

	r.Mount("/socket", socketfeature.Routes(s.sockets))

	return r, nil
}
