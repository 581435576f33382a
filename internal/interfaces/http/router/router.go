// Package router assembles the gin engine for the sync service API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AudicoSA/audico-sync/internal/infrastructure/logger"
	"github.com/AudicoSA/audico-sync/internal/interfaces/http/handler"
)

// RouteRegistrar mounts a handler's routes on the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config wires the handlers into the engine.
type Config struct {
	Logger     *zap.Logger
	System     *handler.SystemHandler
	Registrars []RouteRegistrar
}

// New builds the gin engine with request logging, panic recovery, the health
// endpoint at the root and every API handler under /api.
func New(cfg Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	if cfg.System != nil {
		engine.GET("/healthz", cfg.System.Health)
	}

	api := engine.Group("/api")
	for _, registrar := range cfg.Registrars {
		registrar.RegisterRoutes(api)
	}

	return engine
}
