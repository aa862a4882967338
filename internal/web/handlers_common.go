package web

// handlers_common.go holds request parsing helpers shared across handlers.

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// parseIntParam parses an integer query parameter with a default value.
// Missing, malformed and non-positive values all yield the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// idParam parses the {name} URL parameter as a positive id.
func (s *Server) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(w, r, name, "must be a positive integer, got "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

// decodeJSON reads a single JSON object from the request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &maxErr):
			msg = "request body too large"
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				msg = "invalid value for " + typeErr.Field
			}
		}
		s.badRequest(w, r, "body", msg)
		return false
	}
	return true
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
