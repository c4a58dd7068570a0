package server

import (
	"log/slog"
	"net/http"
	"time"

	"salud-dashboard/internal/auth"
	"salud-dashboard/internal/handlers"
	"salud-dashboard/internal/middleware"
	"salud-dashboard/internal/store"
	"salud-dashboard/internal/ui/static"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	authHandlers *handlers.AuthHandlers
	sessions     *auth.Sessions
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(cache *store.Cache, gate *auth.Gate, sessions *auth.Sessions, sessionTTL time.Duration, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		apiHandlers:  handlers.NewAPIHandlers(cache, logger),
		sseHandlers:  handlers.NewSSEHandlers(cache, logger),
		authHandlers: handlers.NewAuthHandlers(gate, sessions, sessionTTL, logger),
		sessions:     sessions,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	gated := middleware.Authenticate(s.sessions, s.logger)

	// Access gate
	s.mux.HandleFunc("GET /login", s.authHandlers.HandleLoginPage)
	s.mux.HandleFunc("POST /login", s.authHandlers.HandleLogin)
	s.mux.HandleFunc("POST /logout", s.authHandlers.HandleLogout)

	// Dashboard page
	s.mux.Handle("GET /{$}", gated(templateHandlers.Dashboard))
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static.FS)))
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.Handle("GET /admin/stats", gated(http.HandlerFunc(s.apiHandlers.HandleStats)))

	// REST API endpoints
	s.mux.Handle("GET /api/kpis", gated(http.HandlerFunc(s.apiHandlers.HandleKPIs)))
	s.mux.Handle("GET /api/top-categories", gated(http.HandlerFunc(s.apiHandlers.HandleTopCategories)))
	s.mux.Handle("GET /api/region-amounts", gated(http.HandlerFunc(s.apiHandlers.HandleRegionAmounts)))
	s.mux.Handle("GET /api/monthly-trend", gated(http.HandlerFunc(s.apiHandlers.HandleMonthlyTrend)))
	s.mux.Handle("GET /api/supplier-regions", gated(http.HandlerFunc(s.apiHandlers.HandleSupplierRegions)))
	s.mux.Handle("GET /api/purchase-regions", gated(http.HandlerFunc(s.apiHandlers.HandlePurchaseRegions)))
	s.mux.Handle("GET /api/category-detail", gated(http.HandlerFunc(s.apiHandlers.HandleCategoryDetail)))
	s.mux.Handle("GET /api/orders", gated(http.HandlerFunc(s.apiHandlers.HandleOrders)))
	s.mux.Handle("GET /api/categories", gated(http.HandlerFunc(s.apiHandlers.HandleCategories)))
	s.mux.Handle("GET /api/regions", gated(http.HandlerFunc(s.apiHandlers.HandleRegions)))

	// CSV exports
	s.mux.Handle("GET /export/category-detail.csv", gated(http.HandlerFunc(s.apiHandlers.HandleExportCategoryDetail)))
	s.mux.Handle("GET /export/orders.csv", gated(http.HandlerFunc(s.apiHandlers.HandleExportOrders)))

	// Datastar SSE endpoint: one pass, every fragment, one predicate
	s.mux.Handle("GET /sse/dashboard", gated(http.HandlerFunc(s.sseHandlers.HandleDashboard)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
