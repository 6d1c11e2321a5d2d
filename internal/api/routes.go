package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

// SetupServiceRoutes configures service-specific routes. Health routes are
// added by the infrastructure gin builder.
func SetupServiceRoutes(
	router *gin.Engine,
	handler *Handler,
	registry *sse.Registry,
	metrics http.Handler,
	log infralogger.Logger,
) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	programs := router.Group("/api/exchange-programs")
	{
		programs.POST("/search", handler.Search)
		programs.GET("/events", sse.Handler(registry, log))
	}
}
