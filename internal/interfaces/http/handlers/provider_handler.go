package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/competeiq/internal/application/attribution"
	"github.com/turtacn/competeiq/internal/domain/provider"
)

// ProviderHandler serves provider attribution.
type ProviderHandler struct {
	svc          attribution.Service
	maxBodyBytes int64
}

func NewProviderHandler(svc attribution.Service, maxBodyBytes int64) *ProviderHandler {
	return &ProviderHandler{svc: svc, maxBodyBytes: maxBodyBytes}
}

// AnalysisProviders handles GET /api/v1/analyses/{id}/providers.
func (h *ProviderHandler) AnalysisProviders(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.ProviderCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(counts))
}

// CountDocument handles POST /api/v1/providers/count with an analysis
// document as the body.
func (h *ProviderHandler) CountDocument(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := decodeJSON(w, r, h.maxBodyBytes, &doc); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.svc.ProviderCountsFromDocument(doc)))
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil(counts []provider.ProviderCount) []provider.ProviderCount {
	if counts == nil {
		return []provider.ProviderCount{}
	}
	return counts
}
