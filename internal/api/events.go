package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wabridge/wabridge/internal/bus"
	"github.com/wabridge/wabridge/internal/wa"
)

// handleEvents streams bus events as server-sent events. Clients can narrow
// the stream with ?topics=session,wa.message (comma separated prefixes).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	var topics []string
	if raw := strings.TrimSpace(r.URL.Query().Get("topics")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if t := strings.TrimSpace(part); t != "" {
				topics = append(topics, t)
			}
		}
	}

	ch, cancel := s.bus.Subscribe("", 64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client where the session stands before live events arrive.
	snapshot := map[string]any{
		"timestamp": time.Now().UnixMilli(),
		"payload":   map[string]any{"state": string(s.machine.Current())},
	}
	if err := writeSSEEvent(w, "session.snapshot", snapshot); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			if !matchesTopics(evt.Kind, topics) {
				continue
			}
			if err := writeSSEEvent(w, evt.Kind, sseData(evt)); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func matchesTopics(kind string, topics []string) bool {
	if len(topics) == 0 {
		return true
	}
	for _, t := range topics {
		if strings.HasPrefix(kind, t) {
			return true
		}
	}
	return false
}

// sseData shapes a bus event for the wire, converting known payloads into
// their JSON views.
func sseData(evt bus.Event) map[string]any {
	data := map[string]any{
		"timestamp": evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case nil:
	case wa.Message:
		data["payload"] = toMessageView(p)
	case wa.Contact:
		data["payload"] = toContactView(p)
	default:
		data["payload"] = p
	}
	return data
}

func writeSSEEvent(w http.ResponseWriter, kind string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\n", uuid.New().String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", kind); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}
