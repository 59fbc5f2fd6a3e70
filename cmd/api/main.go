// Package main is the entry point for the concierge messaging API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/booking"
	"github.com/doorlist/concierge-core/internal/config"
	"github.com/doorlist/concierge-core/internal/convctx"
	"github.com/doorlist/concierge-core/internal/feed"
	"github.com/doorlist/concierge-core/internal/handler"
	"github.com/doorlist/concierge-core/internal/middleware"
	"github.com/doorlist/concierge-core/internal/respond"
	"github.com/doorlist/concierge-core/internal/session"
	"github.com/doorlist/concierge-core/internal/store"
	"github.com/doorlist/concierge-core/pkg/logger"
	"github.com/doorlist/concierge-core/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "concierge-core", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the change feed
	changeFeed, err := feed.ConnectNATS(feed.NATSConfig{
		URL:   cfg.NATSURL,
		Name:  "concierge-core",
		Token: cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer changeFeed.Close()

	// Connect the system of record
	chatStore, err := store.NewRedisStore(cfg.RedisURL, changeFeed)
	if err != nil {
		log.Error("failed to connect to Redis", zap.Error(err))
		os.Exit(1)
	}
	defer chatStore.Close()

	// Booking collaborator shares the NATS connection
	bookingClient := booking.NewNATSClient(changeFeed.Conn(), cfg.BookingSubject, cfg.BookingTimeout)

	// Initialize the chat session manager
	sessions := session.NewManager(session.Config{
		Threads:  chatStore,
		Messages: chatStore,
		Feed:     changeFeed,
		Reply:    respond.NewGenerator(bookingClient, log),
		Contexts: convctx.NewCache(cfg.ContextCacheSize, cfg.ContextCacheTTL),
		Logger:   log,
	})
	defer sessions.Close()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(changeFeed)
	threadHandler := handler.NewThreadHandler(sessions, log)
	messageHandler := handler.NewMessageHandler(sessions, log)
	streamHandler := handler.NewStreamHandler(sessions, log)
	shareHandler := handler.NewShareHandler()

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/threads", func(r chi.Router) {
			r.Post("/", threadHandler.Open)
			r.Get("/", threadHandler.List)
			r.Get("/stream", streamHandler.StreamThreads)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Post("/read", threadHandler.MarkRead)
				r.Get("/stream", streamHandler.StreamMessages)
			})
		})

		r.Post("/share/whatsapp", shareHandler.WhatsApp)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
