package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/config"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	infragin "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

// Default timeout values. The write timeout is the run timeout plus
// writeTimeoutMargin; SSE streams clear their own write deadline.
const (
	defaultReadTimeout = 30 * time.Second
	defaultIdleTimeout = 120 * time.Second
	writeTimeoutMargin = 15 * time.Second
)

// ServerDeps are the collaborators mounted on the HTTP server. Nil ping
// functions skip the matching health check.
type ServerDeps struct {
	Handler           *Handler
	Registry          *sse.Registry
	Metrics           http.Handler
	RedisPing         func() error
	ElasticsearchPing func() error
}

// NewServer creates the HTTP server using the infrastructure gin package.
func NewServer(cfg *config.Config, deps ServerDeps, log infralogger.Logger) *infragin.Server {
	corsConfig := infragin.CORSConfig{
		Enabled:          cfg.CORS.Enabled,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, cfg.Pipeline.RunTimeout+writeTimeoutMargin, defaultIdleTimeout).
		WithCORS(corsConfig)

	if deps.RedisPing != nil {
		builder = builder.WithRedisHealthCheck(deps.RedisPing)
	}
	if deps.ElasticsearchPing != nil {
		builder = builder.WithElasticsearchHealthCheck(deps.ElasticsearchPing)
	}
	if deps.Registry != nil {
		builder = builder.WithShutdownHook(deps.Registry.Close)
	}

	return builder.
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, deps.Handler, deps.Registry, deps.Metrics, log)
		}).
		Build()
}
