package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/archive"
	"github.com/wabridge/wabridge/internal/wa"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondOK merges success=true into the payload and writes it.
func respondOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func respondError(w http.ResponseWriter, code int, errCode, message string) {
	body := map[string]any{
		"success": false,
		"error":   errCode,
	}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, code, body)
}

// respondNotReady tells the caller the session cannot serve data yet and
// whether a pairing code is waiting to be scanned.
func (s *Server) respondNotReady(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"success":     false,
		"error":       "not_ready",
		"message":     "session is not ready",
		"state":       string(s.machine.Current()),
		"qrAvailable": s.qrCode() != "",
	})
}

// respondOpError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is logged and reported as a generic server error.
func (s *Server) respondOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wa.ErrNotReady):
		s.respondNotReady(w)
	case errors.Is(err, wa.ErrChatNotFound):
		respondError(w, http.StatusNotFound, "chat_not_found", "chat not found")
	case errors.Is(err, wa.ErrContactNotFound):
		respondError(w, http.StatusNotFound, "contact_not_found", "contact not found")
	case errors.Is(err, archive.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, "entry_not_found", "archive entry not found")
	default:
		s.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
