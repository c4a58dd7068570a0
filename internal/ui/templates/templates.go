// Package templates renders the dashboard's HTML pages. The pages are thin:
// all data arrives through the SSE endpoint as patched fragments and signals,
// so the components here only lay out the shell and the filter controls.
package templates

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"salud-dashboard/internal/models"
)

// Login renders the access-code page. failed switches the denied banner on.
func Login(failed bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		banner := ""
		if failed {
			banner = `<p class="error-banner">Acceso Denegado</p>`
		}
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Inteligencia en Salud - Chile</title>
<link rel="stylesheet" href="/static/dashboard.css">
</head>
<body class="login-page">
<main class="login-box">
<h1>Inteligencia en Salud - Chile</h1>
%s
<form method="post" action="/login">
<label for="access_code">Código de Acceso</label>
<input type="password" id="access_code" name="access_code" autofocus>
<button type="submit">Entrar</button>
</form>
</main>
</body>
</html>`, banner)
		return err
	})
}

// filterQuery is the datastar expression rebuilding the filter query string
// from the bound signals. The Apply button and the export links share it so a
// download always reflects the on-screen filters.
const filterQuery = `'health='+$health+'&from='+$from+'&to='+$to+'&supplier_region='+encodeURIComponent($supplierRegion)+'&purchase_region='+encodeURIComponent($purchaseRegion)+'&category='+encodeURIComponent($category)+'&q='+encodeURIComponent($q)`

// Dashboard renders the main page shell: KPI placeholders, filter controls
// bound to datastar signals, and the fragment targets the SSE pass patches.
// categories is the distinct list from the loaded data; only those values are
// offered in the category filter.
func Dashboard(regions, categories []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprint(w, `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Inteligencia en Salud - Chile</title>
<link rel="stylesheet" href="/static/dashboard.css">
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar/bundles/datastar.js"></script>
</head>
<body>
<header>
<h1>Inteligencia en Salud - Chile</h1>
<p>Dashboard de Análisis de Compras Ágiles en el Sector Salud</p>
<form method="post" action="/logout"><button type="submit">Salir</button></form>
</header>
<aside data-signals="{health: true, from: '2025-01-01', to: '2025-12-31', supplierRegion: '', purchaseRegion: '', category: '', q: ''}">
<h2>Filtros Globales</h2>
<label><input type="checkbox" data-bind-health> Solo Sector Salud</label>
<label>Fecha Inicio <input type="date" data-bind-from></label>
<label>Fecha Fin <input type="date" data-bind-to></label>
`); err != nil {
			return err
		}

		if err := filterSelect(w, "supplierRegion", "Región del Proveedor", regions); err != nil {
			return err
		}
		if err := filterSelect(w, "purchaseRegion", "Región Unidad de Compra", regions); err != nil {
			return err
		}
		if err := filterSelect(w, "category", "Especialidad/Servicio", categories); err != nil {
			return err
		}

		_, err := fmt.Fprint(w, `<label>Buscar Proveedor (Nombre o RUT) <input type="text" data-bind-q></label>
<button data-on-click="@get('/sse/dashboard?'+`+filterQuery+`)">Aplicar Filtros</button>
</aside>
<main data-on-load="@get('/sse/dashboard')">
<div id="kpi-cards" class="kpi-grid"></div>
<section id="category-detail-content"></section>
<section id="charts" data-charts></section>
<nav class="exports">
<a href="#" data-on-click="window.location='/export/category-detail.csv?'+`+filterQuery+`">Descargar Especialidades (CSV)</a>
<a href="#" data-on-click="window.location='/export/orders.csv?'+`+filterQuery+`">Descargar Datos Filtrados (CSV)</a>
</nav>
</main>
</body>
</html>`)
		return err
	})
}

func filterSelect(w io.Writer, signal, label string, options []string) error {
	if _, err := fmt.Fprintf(w, `<label>%s <select data-bind-%s><option value="">Todas</option>`,
		html.EscapeString(label), signal); err != nil {
		return err
	}
	for _, o := range options {
		if _, err := fmt.Fprintf(w, `<option value="%s">%s</option>`,
			html.EscapeString(o), html.EscapeString(o)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, `</select></label>`)
	return err
}

// DefaultRegions is what the dashboard page is rendered with.
var DefaultRegions = models.RegionsChile
