package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/events"
	"github.com/yourorg/mailseat/internal/handler"
	"github.com/yourorg/mailseat/internal/infrastructure/logger"
	"github.com/yourorg/mailseat/internal/infrastructure/redis"
	"github.com/yourorg/mailseat/internal/observability/metrics"
	"github.com/yourorg/mailseat/internal/observability/tracing"
	"github.com/yourorg/mailseat/internal/registry"
	"github.com/yourorg/mailseat/internal/repository"
	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/auth"
	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/security/ratelimit"
	"github.com/yourorg/mailseat/internal/service"
	"github.com/yourorg/mailseat/internal/worker"
	"github.com/yourorg/mailseat/pkg/config"
	"github.com/yourorg/mailseat/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting MailSeat server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "mailseat", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Postgres pool
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 6. Initialize repositories
	domainRepo := repository.NewPostgresDomainRepository(pool.GetDB(), log)
	accountRepo := repository.NewPostgresAccountRepository(pool.GetDB(), log)
	snapshotStore := repository.NewRedisSnapshotStore(redisClient, log)

	// 7. Build the in-memory directory and restore the last snapshot
	dir := directory.New()
	if users, err := snapshotStore.LoadAll(ctx); err != nil {
		log.Error("failed to load directory snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	} else if len(users) > 0 {
		if err := dir.Restore(users); err != nil {
			log.Error("failed to restore directory snapshot", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("directory restored from snapshot", slog.Int("users", len(users)))
	}
	metrics.SetDirectorySize(dir.Size())

	// 8. Initialize services
	reg := registry.New(domainRepo, dir, log)
	broker := events.NewBroker(64)
	defer broker.Close()

	directoryService := service.NewDirectoryService(dir, reg, broker, cfg.ReservedUsernames, log)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "mailseat")
	authService := service.NewAuthService(accountRepo, tokenManager, log)

	// 9. Snapshot worker
	snapshotWorker := worker.NewSnapshotWorker(dir, snapshotStore, log,
		time.Duration(cfg.SnapshotIntervalMinutes)*time.Minute)
	go snapshotWorker.Start(ctx)

	// 10. Security components
	rateLimiter := ratelimit.NewLimiter(100, time.Minute) // 100 requests per minute per account
	defer rateLimiter.Stop()

	// 11. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, rateLimiter, log)
	domainsHandler := handler.NewDomainsHandler(reg, dir, log)
	auditLogger := audit.NewLogger(log)
	usersHandler := handler.NewUsersHandler(directoryService, reg, auditLogger, log)
	userDetailHandler := handler.NewUserDetailHandler(directoryService, reg, auditLogger, log)
	plansHandler := handler.NewPlansHandler(cfg, log)
	eventsHandler := handler.NewEventsHandler(broker, tokenManager, log, cfg.CORSAllowedOrigins)
	snapshotHandler := handler.NewSnapshotHandler(snapshotWorker, log)
	healthHandler := handler.NewHealthHandler(redisClient, pool.GetDB(), log)

	// 12. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.Handle("GET /api/plans", plansHandler)
	mux.HandleFunc("GET /api/domains", domainsHandler.List)
	mux.HandleFunc("POST /api/domains", domainsHandler.Create)
	mux.HandleFunc("GET /api/domains/{id}", domainsHandler.Get)
	mux.HandleFunc("PATCH /api/domains/{id}", domainsHandler.Update)
	mux.HandleFunc("DELETE /api/domains/{id}", domainsHandler.Delete)
	mux.HandleFunc("POST /api/domains/{id}/verify", domainsHandler.Verify)
	mux.HandleFunc("GET /api/domains/{id}/users", usersHandler.List)
	mux.HandleFunc("POST /api/domains/{id}/users", usersHandler.Create)
	mux.HandleFunc("GET /api/users/{id}", userDetailHandler.Get)
	mux.HandleFunc("PATCH /api/users/{id}", userDetailHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userDetailHandler.Delete)
	mux.HandleFunc("POST /api/users/{id}/rename", userDetailHandler.Rename)
	mux.Handle("GET /ws/events", eventsHandler)
	mux.Handle("POST /api/admin/snapshot", snapshotHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> sanitize -> JWT -> audit -> rate limit -> content type -> CORS -> mux.
	// JWT runs before audit and rate limiting so both see the caller's claims;
	// the limiter keys on account id and the audit records carry the domain.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.SanitizeInputs(log)(
				middleware.JWTMiddleware(tokenManager, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.RateLimitMiddleware(rateLimiter, log)(
							middleware.ValidateJSONContentType(log)(handlerWithCORS),
						),
					),
				),
			),
		),
		log,
	)

	// 13. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "mailseat"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", 100),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	// Final snapshot so no directory change is lost across the restart
	if err := snapshotWorker.SnapshotNow(shutdownCtx, "shutdown"); err != nil {
		log.Error("final snapshot failed", slog.String("error", err.Error()))
	}

	cancel() // Stop snapshot worker
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
