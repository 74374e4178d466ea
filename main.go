package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/s1natex/taskorbit/internal/config"
	"github.com/s1natex/taskorbit/internal/kv"
	"github.com/s1natex/taskorbit/internal/middleware"
	"github.com/s1natex/taskorbit/internal/session"
	"github.com/s1natex/taskorbit/internal/tasks"
	"github.com/s1natex/taskorbit/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	if err := run(cfg, logger); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{Exporter: cfg.OTelExporter, Endpoint: cfg.OTelEndpoint})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	durable := kv.NewStore(backend, logger)
	scoped := kv.NewStore(kv.NewMemoryBackend(), logger)

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// tokens only matter in session mode; elsewhere any per-process key will do
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
	}

	boards := tasks.NewHandle(durable, logger)
	gate := session.NewGate(session.Config{
		Email:    cfg.LoginEmail,
		Password: cfg.LoginPassword,
		Secret:   secret,
		TTL:      cfg.SessionTTL,
	}, durable, scoped, logger)
	gate.OnLogin(func(session.Session) { boards.Open() })
	gate.OnLogout(boards.Close)

	authMode := middleware.AuthMode(cfg.AuthMode)
	if authMode != middleware.AuthSession || gate.IsAuthenticated() {
		boards.Open()
	}

	r := newRouter(routerDeps{
		gate:   gate,
		boards: boards,
		auth: middleware.AuthConfig{
			Mode:      authMode,
			APIKey:    cfg.APIKey,
			Verifier:  gate,
			SkipPaths: []string{"/health", "/metrics", "POST /session"},
		},
		limiter:     middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		corsOrigins: cfg.CORSOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.Addr),
			slog.String("kv_backend", backend.Name()),
			slog.String("auth_mode", cfg.AuthMode),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openBackend returns the durable kv backend selected by KV_BACKEND.
func openBackend(ctx context.Context, cfg *config.Config) (kv.Backend, func(), error) {
	switch cfg.KVBackend {
	case "memory":
		return kv.NewMemoryBackend(), func() {}, nil
	case "redis":
		b, err := kv.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	default:
		dsn, err := kv.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite path: %w", err)
		}
		b, err := kv.NewSQLiteBackend(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := b.ApplyMigrations(ctx); err != nil {
			_ = b.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return b, func() { _ = b.Close() }, nil
	}
}

type routerDeps struct {
	gate        *session.Gate
	boards      *tasks.Handle
	auth        middleware.AuthConfig
	limiter     *rate.Limiter
	corsOrigins []string
}

// newRouter wires the health endpoint, session and board routes, and middleware stack
func newRouter(deps routerDeps, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	origins := deps.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RateLimitMiddleware(deps.limiter))
	r.Use(middleware.AuthMiddleware(deps.auth))

	// ---- Routes ----

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	session.RegisterRoutes(r, deps.gate)
	tasks.RegisterRoutes(r, deps.boards)

	return r
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
