package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finman-sync-server/internal/config"
	"finman-sync-server/internal/guard"
	"finman-sync-server/internal/handler"
	"finman-sync-server/internal/middleware"
	"finman-sync-server/internal/repository"
	"finman-sync-server/internal/service"
	"finman-sync-server/internal/websocket"
	"finman-sync-server/pkg/logger"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Env == "development", logger.LogLevel(cfg.Logging.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := repository.Connect(ctx, cfg.Database.URI)
	cancel()
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect from MongoDB", zap.Error(err))
		}
	}()

	aggregateRepo := repository.NewAggregateRepository(client, cfg.Database.Name)
	userRepo := repository.NewUserRepository(client, cfg.Database.Name)

	accessGuard := guard.NewAccessGuard(
		cfg.RateLimit.MaxRequests,
		cfg.RateLimit.Window,
		cfg.Session.TTL,
		log,
	)
	defer accessGuard.Stop()

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		cfg.WebSocket.MaxMessageSize,
		log,
	)
	go wsManager.Run()

	accessGuard.OnSessionClosed(wsManager.NotifySessionClosed)

	syncService := service.NewSyncService(aggregateRepo, service.NewRecordConverter(), wsManager, log)
	identityService := service.NewIdentityService(userRepo)

	syncHandler := handler.NewSyncHandler(syncService, accessGuard)
	userHandler := handler.NewUserHandler(identityService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret, cfg.WebSocket, log)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORSMiddleware(cfg.CORS))

	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/sync/upload", syncHandler.Upload).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/download", syncHandler.Download).Methods("GET", "OPTIONS")
	protected.HandleFunc("/session/close", syncHandler.CloseSession).Methods("POST", "OPTIONS")
	protected.HandleFunc("/users/lookup", userHandler.Lookup).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting finman sync server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"finman-sync-server"}`))
}
