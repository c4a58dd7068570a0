package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "salud-dashboard/internal/errors"
	"salud-dashboard/internal/models"
)

// Default analysis window, kept from the dashboard's original behavior: the
// date bounds are always active, there is no unconstrained date mode.
var (
	defaultDateFrom = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultDateTo   = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// parseFilters builds a fully-defined FilterState from the request's query
// parameters. Every field gets a value; absent parameters take their
// defaults. Malformed dates or booleans are a BadRequest before any
// compilation happens.
func parseFilters(r *http.Request) (models.FilterState, error) {
	q := r.URL.Query()

	f := models.FilterState{
		HealthOnly:     true,
		DateFrom:       defaultDateFrom,
		DateTo:         defaultDateTo,
		SupplierRegion: unconstrained(q.Get("supplier_region")),
		PurchaseRegion: unconstrained(q.Get("purchase_region")),
		Category:       unconstrained(q.Get("category")),
		SearchTerm:     q.Get("q"),
	}

	if v := q.Get("health"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return models.FilterState{}, apperrors.BadRequest(fmt.Sprintf("invalid health flag %q", v))
		}
		f.HealthOnly = b
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return models.FilterState{}, apperrors.BadRequest(fmt.Sprintf("invalid from date %q", v))
		}
		f.DateFrom = t
	}

	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return models.FilterState{}, apperrors.BadRequest(fmt.Sprintf("invalid to date %q", v))
		}
		f.DateTo = t
	}

	return f, nil
}

// unconstrained treats the UI's "Todas" sentinel and blanks as no filter.
func unconstrained(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "Todas") {
		return ""
	}
	return v
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid limit %q", v))
	}
	return limit, nil
}
