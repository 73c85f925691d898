package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wsayer1/empathic-weave/internal/clients/openai"
	redisclient "github.com/wsayer1/empathic-weave/internal/clients/redis"
	"github.com/wsayer1/empathic-weave/internal/db"
	"github.com/wsayer1/empathic-weave/internal/handlers"
	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/middleware"
	"github.com/wsayer1/empathic-weave/internal/repos"
	"github.com/wsayer1/empathic-weave/internal/server"
	"github.com/wsayer1/empathic-weave/internal/services"
	"github.com/wsayer1/empathic-weave/internal/sse"
	"github.com/wsayer1/empathic-weave/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	secretRepo := repos.NewSecretRepo(thePG, log)
	matchRepo := repos.NewMatchRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub...")
	sseHub := sse.NewSSEHub(log)

	// Redis fan-out is optional; single-instance deployments run without it.
	var sseBus redisclient.SSEBus
	if os.Getenv("REDIS_ADDR") != "" {
		sseBus, err = redisclient.NewSSEBus(log)
		if err != nil {
			log.Error("Could not init Redis SSE bus", "error", err)
			os.Exit(1)
		}
		if err := sseBus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
			sseHub.Broadcast(m)
		}); err != nil {
			log.Error("Could not start Redis SSE forwarder", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("REDIS_ADDR not set; SSE events stay in-process")
	}

	// Services
	log.Info("Setting up services...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	matcher := services.NewLinearMatcher(log)
	notifier := services.NewNotifier(log, sseHub, sseBus)
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	secretService := services.NewSecretService(thePG, log, secretRepo, openaiClient, matcher)
	matchService := services.NewMatchService(thePG, log, matchRepo, secretRepo, secretService, notifier)
	messageService := services.NewMessageService(thePG, log, messageRepo, matchService, notifier)

	// Handlers
	log.Info("Setting up handlers...")
	authHandler := handlers.NewAuthHandler(authService)
	secretHandler := handlers.NewSecretHandler(secretService)
	matchHandler := handlers.NewMatchHandler(matchService)
	messageHandler := handlers.NewMessageHandler(messageService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		SecretHandler:  secretHandler,
		MatchHandler:   matchHandler,
		MessageHandler: messageHandler,
		SSEHandler:     sseHandler,
	})

	log.Info("Starting server", "addr", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
