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
	"github.com/yourorg/flowhub/internal/events"
	"github.com/yourorg/flowhub/internal/featureflags"
	"github.com/yourorg/flowhub/internal/handler"
	"github.com/yourorg/flowhub/internal/infrastructure/redis"
	"github.com/yourorg/flowhub/internal/mailer"
	"github.com/yourorg/flowhub/internal/observability/metrics"
	"github.com/yourorg/flowhub/internal/observability/tracing"
	"github.com/yourorg/flowhub/internal/remotesync"
	"github.com/yourorg/flowhub/internal/repository"
	"github.com/yourorg/flowhub/internal/security/auth"
	"github.com/yourorg/flowhub/internal/security/middleware"
	"github.com/yourorg/flowhub/internal/security/ratelimit"
	"github.com/yourorg/flowhub/internal/service"
	"github.com/yourorg/flowhub/internal/worker"
	"github.com/yourorg/flowhub/pkg/config"
	"github.com/yourorg/flowhub/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := newLogger(cfg.LogLevel)
	log.Info("starting FlowHub server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, "flowhub", cfg.Environment)
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

	// 6. Initialize remote sync client
	syncClient, err := remotesync.NewClient(remotesync.Config{
		URL:        cfg.SyncURL,
		ServiceKey: cfg.SyncServiceKey,
		AnonKey:    cfg.SyncAnonKey,
	}, redisClient, log)
	if err != nil {
		log.Error("failed to initialize remote sync client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	credentialRepo := repository.NewPostgresCredentialRepository(pool.GetDB(), log)

	// 8. Initialize services
	recorder := events.NewRecorder(log)

	var invitationMailer service.Mailer
	if cfg.SMTPHost != "" {
		invitationMailer = mailer.NewSMTPMailer(mailer.Config{
			Host:   cfg.SMTPHost,
			Port:   cfg.SMTPPort,
			Sender: cfg.SMTPSender,
		}, log)
	} else {
		log.Warn("SMTP_HOST not set, invitation emails will only be logged")
		invitationMailer = mailer.NewLogMailer(log)
	}

	flagProvider := featureflags.NewCachedProvider(&featureflags.EnvProvider{
		Known: []string{"workflow-sharing", "external-secrets", "advanced-permissions"},
	}, 5*time.Minute)

	userService := service.NewUserDirectoryService(userRepo, invitationMailer, recorder, syncClient, cfg.BaseURL, log)
	resolver := service.NewCredentialResolver(credentialRepo, log)
	workflowService := service.NewWorkflowService(syncClient, resolver, log)

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "flowhub")
	authService := service.NewAuthService(userRepo, tokenManager, recorder, syncClient, log)

	// 9. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, log)
	signupHandler := handler.NewSignupHandler(authService, userService, log)
	inviteHandler := handler.NewInviteHandler(userService, userRepo, log)
	usersHandler := handler.NewUsersHandler(userService, userRepo, flagProvider, log)
	settingsHandler := handler.NewSettingsHandler(userService, log)
	roleHandler := handler.NewRoleHandler(userService, userRepo, log)
	workflowsHandler := handler.NewWorkflowsHandler(workflowService, log)
	eventsHandler := handler.NewEventsHandler(recorder, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthChecker{
		"postgres": pool.Health,
		"redis":    redisClient.Ping,
		"remote":   syncClient.TestCredentials,
	})

	rateLimiter := ratelimit.NewLimiter(100, time.Minute) // 100 requests per minute per user

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/login", loginHandler)
	mux.Handle("POST /api/signup", signupHandler)
	mux.Handle("POST /api/users/invite", inviteHandler)
	mux.Handle("GET /api/users", usersHandler)
	mux.Handle("PATCH /api/users/{id}/settings", settingsHandler)
	mux.Handle("PATCH /api/users/{id}/role", roleHandler)
	mux.Handle("POST /api/workflows", workflowsHandler)
	mux.Handle("GET /api/workflows", workflowsHandler)
	mux.Handle("GET /ws/events", eventsHandler)
	mux.Handle("GET /healthz", healthHandler)
	mux.Handle("GET /readyz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	// Chain middleware: request ID -> tracing -> metrics -> CORS -> JWT ->
	// rate limit. CORS sits outside auth so preflights are answered without a
	// token; the limiter sits inside auth so it can key by user id.
	rootHandler := withRequestID(
		otelhttp.NewHandler(
			metrics.HTTPMetricsMiddleware(
				middleware.CORSMiddleware(cfg.CORSAllowedOrigins)(
					middleware.JWTMiddleware(tokenManager, log)(
						middleware.RateLimitMiddleware(rateLimiter)(mux),
					),
				),
			),
			"flowhub.http",
		),
		log,
	)

	// 11. Start sync retry worker in background
	retryWorker := worker.NewSyncRetryWorker(
		redisClient,
		syncClient,
		redis.QueueEmpty,
		log,
		time.Duration(cfg.SyncRetryIntervalSeconds)*time.Second,
	)
	go retryWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.String("sync_url", cfg.SyncURL),
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

	cancel() // Stop retry worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// newLogger builds a JSON slog logger at the configured level
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)
	return log
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

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
