package api

import (
	"net/http"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/wabridge/wabridge/internal/status"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{
		"service": "wabridge",
		"version": version,
		"session": s.session,
		"endpoints": []string{
			"GET /health",
			"GET /qr",
			"GET /qr/image",
			"GET /api/chats",
			"GET /api/unread-chats",
			"GET /api/unread-messages",
			"GET /api/chats/{chatID}/messages",
			"GET /api/chats/{chatID}/unread",
			"POST /api/chats/{chatID}/mark-read",
			"POST /api/mark-all-read",
			"POST /api/send-message",
			"POST /api/send-message-to-self",
			"GET /api/search",
			"GET /api/contacts",
			"GET /api/contacts/{contactID}",
			"GET /api/user-info",
			"GET /api/events",
			"GET /api/archive/messages",
			"POST /api/archive/messages/{id}/priority",
			"POST /api/archive/messages/{id}/processed",
			"POST /api/archive/digest",
			"GET /metrics",
		},
	})
}

// handleHealth reports liveness plus the connected account once the link is
// up. Account is a local read, so the route keeps answering while the
// adapter is busy or the link is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.machine.Current()
	body := map[string]any{
		"state":    string(state),
		"ready":    state == status.Ready,
		"uptimeMs": time.Since(s.startedAt).Milliseconds(),
		"session":  s.session,
	}
	if state == status.Ready {
		if acct, err := s.bridge.Account(r.Context()); err == nil {
			body["account"] = map[string]any{
				"wid":    acct.ID,
				"name":   acct.Name,
				"number": acct.Number,
			}
		}
	}
	respondOK(w, body)
}

// handleQR returns the current pairing code. The route always answers 200;
// a null qr field means there is nothing to scan right now.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	state := s.machine.Current()
	if code := s.qrCode(); code != "" {
		respondOK(w, map[string]any{"qr": code, "state": string(state)})
		return
	}
	msg := "no pairing code available"
	if state == status.Authenticated || state == status.Ready {
		msg = "session is already authenticated"
	}
	respondOK(w, map[string]any{"qr": nil, "state": string(state), "message": msg})
}

func (s *Server) handleQRImage(w http.ResponseWriter, r *http.Request) {
	code := s.qrCode()
	if code == "" {
		respondError(w, http.StatusNotFound, "qr_unavailable", "no pairing code to render")
		return
	}
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("qr encode failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	acct, err := s.bridge.Account(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"name":     acct.Name,
		"number":   acct.Number,
		"wid":      acct.ID,
		"platform": acct.Platform,
	})
}
