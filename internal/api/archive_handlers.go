package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Archive routes stay available regardless of session state; the archive is
// a local database and keeps serving while the link is down.

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	onlyUnprocessed := false
	if raw := r.URL.Query().Get("unprocessed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_unprocessed", "unprocessed must be true or false")
			return
		}
		onlyUnprocessed = v
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}

	entries, err := s.archive.ListMessages(onlyUnprocessed, limit)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	total, unprocessed, err := s.archive.Counts()
	if err != nil {
		s.respondOpError(w, err)
		return
	}

	views := make([]archiveEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toArchiveEntryView(e))
	}
	respondOK(w, map[string]any{
		"messages":    views,
		"count":       len(views),
		"total":       total,
		"unprocessed": unprocessed,
	})
}

func (s *Server) handleArchivePriority(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	var req struct {
		Priority *int `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if req.Priority == nil {
		respondError(w, http.StatusBadRequest, "missing_priority", "priority is required")
		return
	}
	if err := s.archive.SetPriority(id, *req.Priority); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{"id": id, "priority": *req.Priority})
}

func (s *Server) handleArchiveProcessed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	if err := s.archive.MarkProcessed(id); err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{"id": id, "processed": true})
}

// handleArchiveDigest drains the unprocessed backlog: every returned entry
// is marked processed in the same transaction, so repeated calls never hand
// out the same entry twice.
func (s *Server) handleArchiveDigest(w http.ResponseWriter, r *http.Request) {
	entries, err := s.archive.Digest()
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	views := make([]archiveEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toArchiveEntryView(e))
	}
	respondOK(w, map[string]any{
		"messages": views,
		"count":    len(views),
	})
}
