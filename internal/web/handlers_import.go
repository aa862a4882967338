package web

// handlers_import.go serves CSV upload (import, validate, preview) and
// CSV download (export) of customers.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/daoninhthai/crm/internal/core"
)

// multipartOverhead is allowed on top of Import.MaxFileSize for the
// multipart envelope.
const multipartOverhead = 64 << 10

// upload is a CSV file read from the "file" form field.
type upload struct {
	data   []byte
	header *multipart.FileHeader
}

func (u upload) reader() io.Reader { return bytes.NewReader(u.data) }

func (u upload) contentType() string { return u.header.Header.Get("Content-Type") }

// readUpload reads the "file" field of a multipart request into memory.
// The body is capped so a file above Import.MaxFileSize never fully loads.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.badRequest(w, r, "file", fmt.Sprintf("File size exceeds %dMB limit", maxSize/(1024*1024)))
			return upload{}, false
		}
		s.badRequest(w, r, "file", "invalid multipart form")
		return upload{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "file", "no file provided")
		return upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return upload{}, false
	}
	return upload{data: data, header: header}, true
}

// handleImportCustomers imports an uploaded CSV. Header and row problems
// are reported in the result with status 200; only a busy importer or a
// broken upload fail the request.
func (s *Server) handleImportCustomers(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if !utf8.Valid(up.data) {
		s.badRequest(w, r, "file", "file must be UTF-8 encoded")
		return
	}

	result, err := s.service.ImportCustomers(r.Context(), up.reader())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// validationResponse lists the problems found in an upload.
type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// handleValidateImport checks an upload without importing it.
func (s *Server) handleValidateImport(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	problems := s.service.ValidateImportFile(int64(len(up.data)), up.contentType(), up.reader())
	if len(problems) == 0 && !utf8.Valid(up.data) {
		problems = append(problems, "File must be UTF-8 encoded")
	}
	writeJSON(w, validationResponse{Valid: len(problems) == 0, Errors: problems})
}

// handlePreviewImport maps the first ?limit= rows without storing them.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	customers, err := s.service.PreviewImport(up.reader(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

// handleExportCustomers streams a CSV download.
//
// Query: status, company, days (contacted within), columns (comma list, or
// "contact" for the contact list preset).
func (s *Server) handleExportCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := core.ExportRequest{
		Company:    q.Get("company"),
		RecentDays: parseIntParam(r, "days", 0),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := core.ParseCustomerStatus(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		req.Status = status
	}

	prefix := "customers"
	switch cols := q.Get("columns"); {
	case strings.EqualFold(cols, "contact"):
		req.Columns = core.ContactExportColumns
		prefix = "contacts"
	case cols != "":
		req.Columns = splitList(cols)
	}

	// Buffer so a store failure can still produce a JSON error.
	var buf bytes.Buffer
	if _, err := s.service.ExportCustomers(r.Context(), &buf, req); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", core.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.service.ExportFilenameNow(prefix)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
