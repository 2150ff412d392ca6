// Package handler contains the HTTP handlers for the token tracker API.
// Handlers translate between the wire and the application service; all
// policy lives in internal/service.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dexiq/dexiq/internal/domain"
)

// writeJSON marshals v and writes it with the given status. A marshal
// failure degrades to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain error classes to HTTP statuses: not-found →
// 404, validation → 422 with field detail, missing data → 409, analysis
// outage → 502, anything else → 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusConflict, "insufficient data")
	case errors.Is(err, domain.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrAnalysisUnavailable):
		writeError(w, http.StatusBadGateway, "analysis unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses the {id} path parameter.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// resolveUserID reads user_id from the query string, falling back to the
// configured default when absent or invalid.
func resolveUserID(r *http.Request, fallback int64) int64 {
	if v := r.URL.Query().Get("user_id"); v != "" {
		if id, err := parseInt64(v); err == nil && id > 0 {
			return id
		}
	}
	return fallback
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
