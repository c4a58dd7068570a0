package templates

import (
	"context"
	"strings"
	"testing"
)

func TestDashboard_CategoryFilter(t *testing.T) {
	var buf strings.Builder
	err := Dashboard([]string{"Maule"}, []string{"Servicios Médicos", "Insumos Clínicos"}).
		Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	page := buf.String()

	if !strings.Contains(page, "data-bind-category") {
		t.Error("category select is not bound to the category signal")
	}
	if !strings.Contains(page, "Servicios Médicos") || !strings.Contains(page, "Insumos Clínicos") {
		t.Error("category options missing from the page")
	}
	if !strings.Contains(page, "Especialidad/Servicio") {
		t.Error("category filter label missing")
	}
}

func TestDashboard_ExportLinksCarryFilters(t *testing.T) {
	var buf strings.Builder
	err := Dashboard([]string{"Maule"}, nil).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	page := buf.String()

	for _, path := range []string{"/export/category-detail.csv?", "/export/orders.csv?"} {
		idx := strings.Index(page, path)
		if idx < 0 {
			t.Errorf("export link %s missing", path)
			continue
		}
		rest := page[idx:]
		if !strings.Contains(rest[:strings.Index(rest, "</a>")], "$category") {
			t.Errorf("export link %s does not rebuild the filter query from the signals", path)
		}
	}
}

func TestLogin_DeniedBanner(t *testing.T) {
	var ok, denied strings.Builder
	if err := Login(false).Render(context.Background(), &ok); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := Login(true).Render(context.Background(), &denied); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if strings.Contains(ok.String(), "Acceso Denegado") {
		t.Error("denied banner shown on first visit")
	}
	if !strings.Contains(denied.String(), "Acceso Denegado") {
		t.Error("denied banner missing after a failed attempt")
	}
}
