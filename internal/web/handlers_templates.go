package web

import (
	"net/http"

	"github.com/daoninhthai/crm/internal/core"
)

// handleListEmailTemplates handles GET /api/email-templates?category=.
func (s *Server) handleListEmailTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListEmailTemplates(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, templates)
}

func (s *Server) handleCreateEmailTemplate(w http.ResponseWriter, r *http.Request) {
	var in core.EmailTemplate
	if !s.decodeJSON(w, r, &in) {
		return
	}
	t, err := s.service.CreateEmailTemplate(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, t)
}

func (s *Server) handleGetEmailTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := s.service.GetEmailTemplate(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleUpdateEmailTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	var in core.EmailTemplate
	if !s.decodeJSON(w, r, &in) {
		return
	}
	t, err := s.service.UpdateEmailTemplate(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleDeleteEmailTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.service.DeleteEmailTemplate(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRenderEmailTemplate fills a template from a JSON object of
// placeholder values. An empty body renders the template unchanged.
func (s *Server) handleRenderEmailTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	vars := map[string]string{}
	if r.ContentLength != 0 && !s.decodeJSON(w, r, &vars) {
		return
	}
	rendered, err := s.service.RenderEmailTemplate(r.Context(), id, vars)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rendered)
}
