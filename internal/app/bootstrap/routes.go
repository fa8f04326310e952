// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	chatfeature "github.com/dalemusser/playform/internal/app/features/chat"
	errorsfeature "github.com/dalemusser/playform/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/playform/internal/app/features/groups"
	healthfeature "github.com/dalemusser/playform/internal/app/features/health"
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every API route reads the signed-in user from the
// session cookie; group and chat routes require one.
//
//	GET  /health
//	GET  /api/groups
//	POST /api/groups
//	POST /api/groups/join
//	GET  /api/groups/{id}/messages
//	POST /api/groups/{id}/messages
//	GET  /api/groups/{id}/events   (WebSocket)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	rt := deps.Runtime
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	var redisPinger healthfeature.Pinger
	if rt.Redis != nil {
		redisPinger = rt.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, redisPinger, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		api.NotFound(errorsHandler.NotFound)
		api.MethodNotAllowed(errorsHandler.MethodNotAllowed)

		groupsHandler := groupsfeature.NewHandler(rt.Membership, logger)
		groupsRouter := groupsfeature.Routes(groupsHandler, sessionMgr)

		// Chat lives under the same router as /join so the static segment
		// wins over {id}.
		chatHandler := chatfeature.NewHandler(rt.Chat, rt.Broker, appCfg.WSSendBuffer, logger)
		groupsRouter.Mount("/{id}", chatfeature.Routes(chatHandler, sessionMgr))

		api.Mount("/groups", groupsRouter)
	})

	return r, nil
}
