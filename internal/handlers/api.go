package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"salud-dashboard/internal/errors"
	"salud-dashboard/internal/export"
	"salud-dashboard/internal/models"
	"salud-dashboard/internal/observability"
	"salud-dashboard/internal/query"
	"salud-dashboard/internal/store"
	"salud-dashboard/internal/views"
)

const cacheControl = "public, max-age=60"

type APIHandlers struct {
	cache  *store.Cache
	logger *slog.Logger
}

func NewAPIHandlers(cache *store.Cache, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		cache:  cache,
		logger: logger,
	}
}

// prepare runs the start of every render pass; every view executed for this
// request sees the same compiled predicate.
func (h *APIHandlers) prepare(w http.ResponseWriter, r *http.Request) (*store.Store, query.Predicate, bool) {
	return prepareRender(w, r, h.cache, h.logger)
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := observability.GetRequestID(r.Context())
	errors.WriteError(w, h.logger, err, requestID)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	kpi, err := views.KPISummary(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	regions, err := views.ActiveRegions(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := struct {
		models.KPISummary
		ActiveRegions int `json:"active_regions"`
	}{kpi, regions}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleTopCategories(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.TopCategories(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleRegionAmounts(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.RegionAmounts(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.MonthlyTrend(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSupplierRegions(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.SupplierRegionBreakdown(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandlePurchaseRegions(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.PurchaseRegionBreakdown(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.CategoryDetail(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	orders, err := views.Listing(r.Context(), st, pred, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	total, err := views.ListingTotal(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := struct {
		Total  int            `json:"total"`
		Orders []models.Order `json:"orders"`
	}{total, orders}

	errors.WriteSuccess(w, data)
}

// HandleCategories serves the distinct category list that populates the
// category filter control; only values from here are valid filter input.
func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	st, err := h.cache.Get(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, st.Categories(), map[string]string{"Cache-Control": cacheControl})
}

// HandleRegions serves the fixed 16-entry region enumeration.
func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, models.RegionsChile, map[string]string{"Cache-Control": "public, max-age=3600"})
}

func (h *APIHandlers) HandleExportCategoryDetail(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	data, err := views.CategoryDetail(r.Context(), st, pred)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.CategoryDetailFilename(time.Now())))

	if err := export.WriteCategoryDetail(w, data); err != nil {
		h.logger.Error("write category detail export", "error", err)
	}
}

func (h *APIHandlers) HandleExportOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, pred, ok := h.prepare(w, r)
	if !ok {
		return
	}

	orders, err := views.Listing(r.Context(), st, pred, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.OrdersFilename(time.Now())))

	if err := export.WriteOrders(w, orders); err != nil {
		h.logger.Error("write orders export", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	st, err := h.cache.Get(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	age, _ := h.cache.Age()

	stats := map[string]any{
		"record_count": st.RecordCount(),
		"skipped_rows": st.SkippedRows(),
		"categories":   len(st.Categories()),
		"loaded_at":    st.LoadedAt(),
		"cache_age":    age.String(),
	}

	errors.WriteSuccess(w, stats)
}
