package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"salud-dashboard/internal/auth"
	"salud-dashboard/internal/config"
	"salud-dashboard/internal/fetch"
	"salud-dashboard/internal/middleware"
	"salud-dashboard/internal/observability"
	"salud-dashboard/internal/server"
	"salud-dashboard/internal/store"
	"salud-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

// dashboardPage renders the page shell with the category filter populated
// from the loaded data.
func dashboardPage(cache *store.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		st, err := cache.Get(ctx)
		if err != nil {
			http.Error(w, "data unavailable", http.StatusServiceUnavailable)
			return
		}

		if err := templates.Dashboard(templates.DefaultRegions, st.Categories()).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"bucket", cfg.Object.Bucket,
		"object_key", cfg.Object.ObjectKey,
		"store_ttl", cfg.Store.TTL,
	)

	fetcher, err := fetch.NewR2Fetcher(cfg.Object, logger)
	if err != nil {
		logger.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}

	loadTimeout := cfg.Store.LoadTimeout
	cache := store.NewCache(cfg.Store.TTL, func(ctx context.Context) (*store.Store, error) {
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()

		body, err := fetcher.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		defer body.Close()

		return store.Load(ctx, body, logger)
	}, logger)

	// One eager load so a broken source fails the process at startup instead
	// of on the first request.
	start := time.Now()
	if _, err := cache.Get(context.Background()); err != nil {
		logger.Error("failed to load source data", "error", err)
		os.Exit(1)
	}
	logger.Info("source data loaded", "duration", time.Since(start))

	gate := auth.NewGate(cfg.Auth.Password)
	sessions := auth.NewSessions(cfg.Auth.SessionTTL)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(cache),
	}

	srv := server.NewServer(cache, gate, sessions, cfg.Auth.SessionTTL, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("closing analytical store")
		return cache.Close()
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
