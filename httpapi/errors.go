package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	fitAuth "github.com/fitgoal/fitAuth"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusFor maps an Engine error to its HTTP status.
func StatusFor(err error) int {
	switch fitAuth.KindOf(err) {
	case fitAuth.KindValidation:
		return http.StatusBadRequest
	case fitAuth.KindDuplicateAccount:
		return http.StatusConflict
	case fitAuth.KindNotFound:
		return http.StatusNotFound
	case fitAuth.KindInvalidCredential, fitAuth.KindUnauthenticated:
		return http.StatusUnauthorized
	case fitAuth.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var e *fitAuth.Error
	if status == http.StatusInternalServerError || !errors.As(err, &e) {
		s.log.Error(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fitAuth.ErrInternal.Message()})
		return
	}

	body := errorResponse{Error: e.Message(), Errors: e.Fields}
	if e.Kind == fitAuth.KindUnauthenticated {
		body.Reason = e.Reason.String()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
