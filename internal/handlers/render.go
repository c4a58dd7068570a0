package handlers

import (
	"log/slog"
	"net/http"

	"salud-dashboard/internal/errors"
	"salud-dashboard/internal/observability"
	"salud-dashboard/internal/query"
	"salud-dashboard/internal/store"
)

// prepareRender is the head of every render cycle: resolve the cached store,
// parse the filter state and compile the predicate once. On failure the error
// is already written and ok is false.
func prepareRender(w http.ResponseWriter, r *http.Request, cache *store.Cache, logger *slog.Logger) (*store.Store, query.Predicate, bool) {
	requestID := observability.GetRequestID(r.Context())

	st, err := cache.Get(r.Context())
	if err != nil {
		errors.WriteError(w, logger, err, requestID)
		return nil, query.Predicate{}, false
	}

	f, err := parseFilters(r)
	if err != nil {
		errors.WriteError(w, logger, err, requestID)
		return nil, query.Predicate{}, false
	}

	pred, err := query.Compile(f, st.Categories())
	if err != nil {
		errors.WriteError(w, logger, err, requestID)
		return nil, query.Predicate{}, false
	}

	return st, pred, true
}
