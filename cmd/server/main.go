// SEBI Saathi chat service: the complaint assistant and registration
// guide bots, plus the knowledge-query proxy.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/shivin4/RAGSebi/internal/chat"
	"github.com/shivin4/RAGSebi/internal/config"
	"github.com/shivin4/RAGSebi/internal/identity"
	"github.com/shivin4/RAGSebi/internal/knowledge"
	"github.com/shivin4/RAGSebi/internal/middleware"
	"github.com/shivin4/RAGSebi/internal/scores"
	"github.com/shivin4/RAGSebi/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting chat service", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Collaborator clients.
	scoresClient := scores.NewClient(cfg.ScoresURL, cfg.CollaboratorTimeout)
	knowledgeClient := knowledge.NewClient(cfg.KnowledgeURL, cfg.CollaboratorTimeout)
	if knowledgeClient.Available() {
		slog.Info("Knowledge collaborator configured", "url", cfg.KnowledgeURL)
	} else {
		slog.Info("Knowledge collaborator not configured, canned answers only")
	}

	conversationLogger, err := chat.NewConversationLogger(chat.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Chat core. The limiter window spreads the configured burst over the
	// sustained per-second rate.
	controller := chat.NewController(scoresClient, knowledgeClient, conversationLogger, cfg.CollaboratorTimeout)
	manager := chat.NewManager(cfg.SessionTTL)
	window := time.Duration(cfg.ChatRateBurst) * time.Second / time.Duration(cfg.ChatRatePerSec)
	limiter := chat.NewRateLimiter(cfg.ChatRateBurst, window)
	chatHandler := chat.NewHandler(controller, manager, knowledgeClient, limiter, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	chatHandler.RegisterRoutes(r)
	r.Handle("/*", web.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.StartSweeper(ctx)

	go func() {
		slog.Info("Chat service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Chat service stopped successfully")
}
