package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/daoninhthai/crm/internal/core"
)

// handleListDeals lists deals filtered by ?stage=&assignee=&customer=.
func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.DealFilter{
		AssignedTo: q.Get("assignee"),
		Limit:      parseIntParam(r, "limit", 0),
		Offset:     parseIntParam(r, "offset", 0),
	}
	if raw := q.Get("stage"); raw != "" {
		stage, err := core.ParseStage(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		f.Stage = stage
	}
	if raw := q.Get("customer"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.badRequest(w, r, "customer", "must be a positive integer")
			return
		}
		f.CustomerID = id
	}

	deals, err := s.service.ListDeals(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, deals)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var in core.Deal
	if !s.decodeJSON(w, r, &in) {
		return
	}
	d, err := s.service.CreateDeal(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	d, err := s.service.GetDeal(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}

// handleUpdateDeal edits deal fields. The stage only moves through
// PATCH /stage.
func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	var in core.Deal
	if !s.decodeJSON(w, r, &in) {
		return
	}
	d, err := s.service.UpdateDeal(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.service.DeleteDeal(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveDealStage handles PATCH /api/deals/{id}/stage?stage=.
// A move the pipeline forbids answers 422 with the allowed stages.
func (s *Server) handleMoveDealStage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	d, err := s.service.MoveDealToStage(r.Context(), id, r.URL.Query().Get("stage"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (s *Server) handleDealActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	activities, err := s.service.ListDealActivities(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, activities)
}

// handlePipelineBoard returns every stage with its deals.
func (s *Server) handlePipelineBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.PipelineBoard(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, board)
}

func (s *Server) handlePipelineValue(w http.ResponseWriter, r *http.Request) {
	values, err := s.service.PipelineValueByStage(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, values)
}

func (s *Server) handlePipelineSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.PipelineSummary(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleDealsByRepresentative(w http.ResponseWriter, r *http.Request) {
	deals, err := s.service.DealsByRepresentative(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, deals)
}

// handleDealsByStage returns the deal count per stage for the dashboard.
func (s *Server) handleDealsByStage(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.PipelineCountByStage(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, counts)
}
