package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"salud-dashboard/internal/models"
	"salud-dashboard/internal/store"
	"salud-dashboard/internal/views"
)

var kpiTemplate = template.Must(template.New("kpiCards").Parse(`
<div id="kpi-cards" class="kpi-grid">
<div class="metric-card"><span class="metric-label">Adjudicadores</span><strong>{{.Suppliers}}</strong></div>
<div class="metric-card"><span class="metric-label">Órdenes de Compra</span><strong>{{.Orders}}</strong></div>
<div class="metric-card"><span class="metric-label">Monto Total CLP</span><strong>{{printf "%.1f" .TotalBillions}}B</strong></div>
<div class="metric-card"><span class="metric-label">Regiones Activas</span><strong>{{.ActiveRegions}}</strong></div>
</div>`))

var categoryDetailTemplate = template.Must(template.New("categoryDetail").Parse(`
<div id="category-detail-content">
{{if .Rows}}<table class="modern-table">
<thead><tr><th>Especialidad</th><th>Órdenes</th><th>Proveedores</th><th>Monto Total</th><th>Promedio</th><th>Participación</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Category}}</td>
<td>{{.Orders}}</td>
<td>{{.Suppliers}}</td>
<td>${{printf "%.0f" .TotalAmount}}</td>
<td>${{printf "%.0f" .AvgAmount}}</td>
<td>{{printf "%.1f" .Share}}%</td>
</tr>{{end}}
</tbody>
</table>{{else}}<p class="empty-state">No hay datos para los filtros seleccionados</p>{{end}}
</div>`))

type SSEHandlers struct {
	cache  *store.Cache
	logger *slog.Logger
}

func NewSSEHandlers(cache *store.Cache, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		cache:  cache,
		logger: logger,
	}
}

type kpiFragment struct {
	Suppliers     int
	Orders        int
	TotalBillions float64
	ActiveRegions int
}

// HandleDashboard re-renders every dashboard fragment for the current filter
// state in one pass: one compilation, one predicate, all views.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	st, pred, ok := prepareRender(w, r, h.cache, h.logger)
	if !ok {
		return
	}

	ctx := r.Context()
	sse := datastar.NewSSE(w, r)

	kpi, err := views.KPISummary(ctx, st, pred)
	if err != nil {
		h.logger.Error("kpi summary", "error", err)
		return
	}

	regions, err := views.ActiveRegions(ctx, st, pred)
	if err != nil {
		h.logger.Error("active regions", "error", err)
		return
	}

	var kpiBuf strings.Builder
	if err := kpiTemplate.Execute(&kpiBuf, kpiFragment{
		Suppliers:     kpi.Suppliers,
		Orders:        kpi.Orders,
		TotalBillions: kpi.TotalAmount / 1_000_000_000,
		ActiveRegions: regions,
	}); err != nil {
		h.logger.Error("render kpi cards", "error", err)
		return
	}
	sse.PatchElements(kpiBuf.String())

	detail, err := views.CategoryDetail(ctx, st, pred)
	if err != nil {
		h.logger.Error("category detail", "error", err)
		return
	}

	var detailBuf strings.Builder
	if err := categoryDetailTemplate.Execute(&detailBuf, struct {
		Rows []models.CategoryDetailRow
	}{detail}); err != nil {
		h.logger.Error("render category detail", "error", err)
		return
	}
	sse.PatchElements(detailBuf.String())

	topCategories, err := views.TopCategories(ctx, st, pred)
	if err != nil {
		h.logger.Error("top categories", "error", err)
		return
	}

	regionAmounts, err := views.RegionAmounts(ctx, st, pred)
	if err != nil {
		h.logger.Error("region amounts", "error", err)
		return
	}

	trend, err := views.MonthlyTrend(ctx, st, pred)
	if err != nil {
		h.logger.Error("monthly trend", "error", err)
		return
	}

	supplierRegions, err := views.SupplierRegionBreakdown(ctx, st, pred)
	if err != nil {
		h.logger.Error("supplier region breakdown", "error", err)
		return
	}

	purchaseRegions, err := views.PurchaseRegionBreakdown(ctx, st, pred)
	if err != nil {
		h.logger.Error("purchase region breakdown", "error", err)
		return
	}

	// Chart data travels as signals; the client-side chart library consumes
	// them as plain tabular series.
	signals, err := json.Marshal(map[string]any{
		"topCategories":   topCategories,
		"regionAmounts":   regionAmounts,
		"monthlyTrend":    trend,
		"supplierRegions": supplierRegions,
		"purchaseRegions": purchaseRegions,
	})
	if err != nil {
		h.logger.Error("marshal dashboard signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
