package web

import (
	"net/http"
	"strconv"

	"github.com/daoninhthai/crm/internal/core"
)

// customerFilter reads ?status=&company=&name=&limit=&offset=.
func (s *Server) customerFilter(w http.ResponseWriter, r *http.Request) (core.CustomerFilter, bool) {
	q := r.URL.Query()
	f := core.CustomerFilter{
		Company: q.Get("company"),
		Name:    q.Get("name"),
		Limit:   parseIntParam(r, "limit", 0),
		Offset:  parseIntParam(r, "offset", 0),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := core.ParseCustomerStatus(raw)
		if err != nil {
			s.respondError(w, r, err)
			return f, false
		}
		f.Status = status
	}
	return f, true
}

// handleListCustomers lists customers. X-Total-Count carries the match
// count before paging.
func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	f, ok := s.customerFilter(w, r)
	if !ok {
		return
	}
	customers, err := s.service.ListCustomers(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	total, err := s.service.CountCustomers(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, customers)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in core.Customer
	if !s.decodeJSON(w, r, &in) {
		return
	}
	c, err := s.service.CreateCustomer(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := s.service.GetCustomer(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	var in core.Customer
	if !s.decodeJSON(w, r, &in) {
		return
	}
	c, err := s.service.UpdateCustomer(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.service.DeleteCustomer(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChangeCustomerStatus handles PATCH /api/customers/{id}/status?status=.
func (s *Server) handleChangeCustomerStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := s.service.ChangeCustomerStatus(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// handleTouchCustomerContact records a contact today.
func (s *Server) handleTouchCustomerContact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := s.service.TouchCustomerContact(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleCustomerActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "id")
	if !ok {
		return
	}
	activities, err := s.service.ListCustomerActivities(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, activities)
}
