package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wsayer1/empathic-weave/internal/handlers"
	"github.com/wsayer1/empathic-weave/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	SecretHandler  *handlers.SecretHandler
	MatchHandler   *handlers.MatchHandler
	MessageHandler *handlers.MessageHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// Secret submission works with or without an identity.
	router.POST("/api/secrets/process", cfg.AuthMiddleware.OptionalAuth(), cfg.SecretHandler.Process)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Secrets
	protected.GET("/api/secrets/mine", cfg.SecretHandler.ListMine)
	protected.POST("/api/secrets/:id/claim", cfg.SecretHandler.Claim)
	protected.DELETE("/api/secrets/:id", cfg.SecretHandler.Delete)
	// Matches
	protected.POST("/api/matches", cfg.MatchHandler.Create)
	protected.GET("/api/matches", cfg.MatchHandler.ListMine)
	// Messages
	protected.GET("/api/matches/:id/messages", cfg.MessageHandler.List)
	protected.POST("/api/matches/:id/messages", cfg.MessageHandler.Send)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
