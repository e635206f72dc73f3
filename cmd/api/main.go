package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"farmconnect/internal/adapter/api"
	"farmconnect/internal/adapter/api/handler"
	apimiddleware "farmconnect/internal/adapter/api/middleware"
	"farmconnect/internal/adapter/api/router"
	"farmconnect/internal/adapter/repository"
	domainrepo "farmconnect/internal/domain/repository"
	"farmconnect/internal/domain/service"
	"farmconnect/internal/infrastructure/firebase"
	"farmconnect/internal/infrastructure/ratelimit"
	"farmconnect/internal/infrastructure/websocket"
	"farmconnect/internal/usecase"
	"farmconnect/pkg/config"
	"farmconnect/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Setup(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		conversationRepo domainrepo.ConversationRepository
		cartBridge       service.CartBridge
		authenticator    usecase.Authenticator
	)

	if cfg.StoreBackend == config.StoreMemory {
		logger.Warn("Using the in-memory store; data is lost on restart")
		conversationRepo = repository.NewMemoryConversationRepository()
		cartBridge = service.NewMemoryCartBridge()
	} else {
		opts := credentials(cfg)

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			logger.Get().Fatal().Err(err).Msg("Failed to initialize Firebase")
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Get().Fatal().Err(err).Msg("Failed to initialize Firebase Auth")
		}
		authenticator = firebase.NewFirebaseAuthClient(authClient)

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Get().Fatal().Err(err).Msg("Failed to create Firestore client")
		}
		defer firestoreClient.Close()

		conversationRepo = repository.NewFirestoreConversationRepository(firestoreClient)
		cartBridge = service.NewFirestoreCartBridge(firestoreClient)
	}

	if cfg.DevAuthEnabled() {
		logger.Warn("DEV_AUTH is on: accepting dev:<uid>:<role> tokens")
		authenticator = firebase.NewDevAuthenticator()
	}
	if authenticator == nil {
		logger.Get().Fatal().Msg("No authenticator configured: use the firestore store or enable DEV_AUTH in development")
	}

	registry := websocket.NewRegistry(websocket.Options{
		SendBuffer: cfg.SendBufferSize,
		WriteWait:  cfg.WriteWait,
		PongWait:   cfg.PongWait,
	})
	hub := websocket.NewHub(conversationRepo)

	locks := usecase.NewConversationLocks()
	presenceUseCase := usecase.NewPresenceUseCase(hub, cfg.TypingTTL)
	hub.OnLeave(presenceUseCase.HandleLeave)
	negotiationUseCase := usecase.NewNegotiationUseCase(conversationRepo, cartBridge, hub, locks, cfg.CartWriteTimeout)
	chatUseCase := usecase.NewChatUseCase(conversationRepo, negotiationUseCase, hub, presenceUseCase, locks, cfg.HistoryOnJoin)

	go presenceUseCase.Run(ctx)

	rateLimiter := ratelimit.NewRateLimiter(nil)
	rateLimiter.StartCleanupRoutine(ctx, 10*time.Minute)

	handler.Setup(chatUseCase, negotiationUseCase, registry)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins(cfg.AllowedOrigins),
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authenticator)
	wsHandler := handler.NewWebSocketHandler(
		authenticator,
		registry,
		hub,
		chatUseCase,
		negotiationUseCase,
		presenceUseCase,
		rateLimiter,
		cfg.AllowedOrigins,
	)

	router.Setup(e, authMiddleware, wsHandler, rateLimiter)
	router.SetupDevRouter(e, cfg.DevAuthEnabled())

	go func() {
		logger.Info("Starting server on port %s (store=%s)", cfg.ServerPort, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Fatal().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// credentials prefers inline service account JSON (production) over a file
// path (local development), falling back to application default credentials.
func credentials(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccount != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccount))}
	}

	if cfg.FirebaseCredentialFile != "" {
		if _, err := os.Stat(cfg.FirebaseCredentialFile); err != nil {
			logger.Get().Fatal().Err(err).Msgf("Service account file is not readable: %s", cfg.FirebaseCredentialFile)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseCredentialFile)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseCredentialFile)}
	}

	logger.Info("Using application default credentials")
	return nil
}

func allowOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"*"}
	}
	return configured
}
