package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/daoninhthai/crm/internal/core"
	"github.com/daoninhthai/crm/internal/logging"
)

// handleListReports handles GET /api/reports?type=.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, reports)
}

// staleLeadsResponse is the result of a manual stale leads check.
type staleLeadsResponse struct {
	Count int             `json:"count"`
	Leads []core.Customer `json:"leads"`
}

// handleRunReport runs a scheduled job on demand. kind is weekly, monthly
// or stale-leads.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	ctx, runID := logging.WithRunID(r.Context())
	kind := strings.ToLower(chi.URLParam(r, "kind"))
	logging.FromContext(ctx).Info("manual report run", "kind", kind, "run_id", runID)

	switch kind {
	case "weekly":
		report, err := s.service.GenerateWeeklyReport(ctx)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, report)
	case "monthly":
		report, err := s.service.GenerateMonthlyReport(ctx)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, report)
	case "stale-leads":
		leads, err := s.service.CheckStaleLeads(ctx)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, staleLeadsResponse{Count: len(leads), Leads: leads})
	default:
		s.badRequest(w, r, "kind", "must be weekly, monthly or stale-leads")
	}
}
