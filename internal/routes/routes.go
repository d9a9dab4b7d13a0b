package routes

import (
	"net/http"

	"kaamsetu_backend/internal/handlers"
	"kaamsetu_backend/internal/middleware"
	"kaamsetu_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every handler under /api/v1 plus the websocket
// endpoint and a health probe.
func RegisterRoutes(engine *gin.Engine, appHandlers *handlers.AppHandlers, wsHandler *ws.Handler) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	{
		appHandlers.Auth.RegisterRoutes(api)
		appHandlers.Jobs.RegisterRoutes(api)
		appHandlers.Proposals.RegisterRoutes(api)
		appHandlers.Notifications.RegisterRoutes(api)
	}

	wsGroup := engine.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
}
