// cmd/api/main.go
// Main entry point for the circles API
// This file bootstraps all components and starts the server

package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/auth"
	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/clock"
	"github.com/imadgeboyega/kiekky-circles/internal/common/database"
	"github.com/imadgeboyega/kiekky-circles/internal/common/logger"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
	"github.com/imadgeboyega/kiekky-circles/internal/config"
	"github.com/imadgeboyega/kiekky-circles/internal/events"
	"github.com/imadgeboyega/kiekky-circles/internal/facilitator"
	"github.com/imadgeboyega/kiekky-circles/internal/matching"
	"github.com/imadgeboyega/kiekky-circles/internal/messaging"
	"github.com/imadgeboyega/kiekky-circles/internal/milestones"
	"github.com/imadgeboyega/kiekky-circles/internal/presence"
)

var startTime = time.Now()

func main() {
	// 1. Load configuration (.env first, then CIRCLES_ environment)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("circles-api", cfg.LogLevel, cfg.LogPretty)
	log.Info().Msg("starting circles API")

	// 2. Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration validation failed")
	}
	log.Info().Str("environment", cfg.Environment).Str("port", cfg.Port).Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Repository: Postgres when configured, otherwise in-memory
	var repo circles.Repository
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDBFromURL(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db, log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		repo = circles.NewPostgresRepository(db)
		log.Info().Msg("using PostgreSQL repository")
	} else {
		repo = circles.NewMemoryRepository()
		log.Warn().Msg("database URL not configured, using in-memory repository")
	}

	// 4. Redis presence mirror (optional)
	presenceOpts := []presence.Option{
		presence.WithTTL(cfg.TypingTTL),
		presence.WithSweepInterval(cfg.TypingSweepInterval),
	}
	if redisClient := connectRedis(ctx, cfg, log); redisClient != nil {
		defer redisClient.Close()
		presenceOpts = append(presenceOpts, presence.WithMirror(presence.NewRedisMirror(redisClient, cfg.RedisPrefix)))
	}

	// 5. Engine components
	clk := clock.Real{}
	bus := events.NewBus(log)

	tracker := presence.NewTracker(bus, clk, log, presenceOpts...)
	go tracker.Start(ctx)

	responder := facilitator.NewResponder(clk, log,
		facilitator.WithDelay(cfg.FacilitatorMinDelay, cfg.FacilitatorMaxDelay),
		facilitator.WithSummaryProbability(cfg.FacilitatorSummaryChance),
	)

	pipeline := messaging.NewPipeline(repo, tracker, responder, bus, clk, log)
	pipeline.SetRecentLookback(cfg.RecentMessagesLookback)
	responder.SetDeliverer(pipeline)

	circleService := circles.NewService(repo, clk, log)
	milestoneTracker := milestones.NewTracker(repo, bus, pipeline, clk, log)
	recommender := matching.NewRecommender(repo, log)

	prompter := facilitator.NewPrompter(repo, clk, nil, log)
	promptScheduler := facilitator.NewPromptScheduler(prompter, cfg.PromptSweepInterval, log)
	go promptScheduler.Start(ctx)

	hub := messaging.NewHub(bus, tracker, log)
	go hub.Run()
	circleService.SetDisconnector(hub)
	log.Info().Msg("engine components initialized")

	// 6. Setup routes
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret, log)
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	messagingHandler := messaging.NewHandler(pipeline, hub)
	messaging.RegisterWebSocket(router, messagingHandler, authMiddleware.Authenticate)
	messaging.RegisterHealthCheck(router, messagingHandler)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware.Authenticate)
	circles.RegisterRoutes(api, circles.NewHandler(circleService))
	messaging.RegisterRoutes(api, messagingHandler)
	milestones.RegisterRoutes(api, milestones.NewHandler(milestoneTracker))
	matching.RegisterRoutes(api, matching.NewHandler(recommender))
	facilitator.RegisterRoutes(api, facilitator.NewHandler(prompter))

	// Add middleware
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware)
	log.Info().Msg("routes registered")

	// 7. Create and start HTTP server
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop background work: sweeps, pending facilitator replies, websocket hub
	cancel()
	promptScheduler.Stop()
	responder.Shutdown()
	hub.Shutdown()

	log.Info().Msg("server exited gracefully")
}

func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Info().Msg("redis URL not configured, presence stays in-process")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := database.NewRedisClientFromURL(pingCtx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without presence mirror")
		return nil
	}
	log.Info().Msg("connected to Redis")
	return client
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}, http.StatusOK)
}

// loggingMiddleware logs all requests
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
