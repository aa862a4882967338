package web

import (
	"net/http"

	"github.com/daoninhthai/crm/internal/core"
)

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in core.Activity
	if !s.decodeJSON(w, r, &in) {
		return
	}
	a, err := s.service.CreateActivity(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, a)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	a, err := s.service.GetActivity(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.service.DeleteActivity(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
