package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/competeiq/internal/application/threatassessment"
)

// ThreatHandler serves competitor and market threat assessments. Assessment
// endpoints always answer 200; failures surface as the default assessment.
type ThreatHandler struct {
	svc threatassessment.Service
}

func NewThreatHandler(svc threatassessment.Service) *ThreatHandler {
	return &ThreatHandler{svc: svc}
}

// CompetitorThreat handles GET /api/v1/competitors/{id}/threat.
func (h *ThreatHandler) CompetitorThreat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AssessCompetitorThreat(r.Context(), chi.URLParam(r, "id")))
}

// MarketThreat handles GET /api/v1/markets/{industry}/threat.
func (h *ThreatHandler) MarketThreat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AssessMarketThreat(r.Context(), chi.URLParam(r, "industry")))
}

// ArchiveMarket handles POST /api/v1/markets/{industry}/archive.
func (h *ThreatHandler) ArchiveMarket(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ArchiveMarketAssessment(r.Context(), chi.URLParam(r, "industry"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// MarketArchives handles GET /api/v1/markets/{industry}/reports.
func (h *ThreatHandler) MarketArchives(w http.ResponseWriter, r *http.Request) {
	objs, err := h.svc.ListMarketArchives(r.Context(), chi.URLParam(r, "industry"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}
