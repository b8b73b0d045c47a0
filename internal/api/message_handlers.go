package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wabridge/wabridge/internal/wa"
)

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendToSelfRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.ChatID) == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "chatId and message are required")
		return
	}
	receipt, err := s.bridge.SendMessage(r.Context(), req.ChatID, req.Message)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"messageId": receipt.MessageID,
		"timestamp": receipt.Timestamp,
	})
}

func (s *Server) handleSendToSelf(w http.ResponseWriter, r *http.Request) {
	var req sendToSelfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "missing_fields", "message is required")
		return
	}
	receipt, err := s.bridge.SendMessageToSelf(r.Context(), req.Message)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"messageId": receipt.MessageID,
		"timestamp": receipt.Timestamp,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query parameter is required")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	opts := wa.SearchOptions{Limit: limit, ChatID: r.URL.Query().Get("chatId")}
	groups, err := s.bridge.SearchMessages(r.Context(), query, opts)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	total := 0
	for _, g := range groups {
		total += len(g.Messages)
	}
	respondOK(w, map[string]any{
		"query":        query,
		"chats":        toChatMessagesViews(groups),
		"count":        len(groups),
		"totalMatches": total,
	})
}
