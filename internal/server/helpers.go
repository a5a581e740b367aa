package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/bagboard/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse is the success envelope.
type DataResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteData writes a 200 success envelope.
func WriteData(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, DataResponse{Status: "ok", Data: data})
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteImage writes raw image bytes with a public cache lifetime.
func WriteImage(w http.ResponseWriter, contentType string, data []byte, maxAge time.Duration) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) (int, error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, nil
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, models.ErrInvalidInput
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, models.ErrUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, models.ErrForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, models.ErrNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, models.ErrConflict
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, models.ErrUpstream
	default:
		return http.StatusInternalServerError, nil
	}
}

// writeServiceError writes the status for err. Client and upstream errors
// carry the error text without the trailing sentinel; internal errors are
// logged and replaced by the fallback message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, sentinel := statusFor(err)
	switch {
	case status == http.StatusBadGateway:
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream failure")
	case status >= http.StatusInternalServerError:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		WriteError(w, status, fallback)
		return
	}

	msg := err.Error()
	if sentinel != nil {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	WriteError(w, status, msg)
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
