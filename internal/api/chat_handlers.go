package api

import (
	"errors"
	"net/http"
	"strconv"
)

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.bridge.ListChats(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"chats": toChatViews(chats),
		"count": len(chats),
	})
}

func (s *Server) handleUnreadChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.bridge.ListUnreadChats(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	total := 0
	for _, c := range chats {
		total += c.UnreadCount
	}
	respondOK(w, map[string]any{
		"chats":       toChatViews(chats),
		"count":       len(chats),
		"totalUnread": total,
	})
}

func (s *Server) handleUnreadMessages(w http.ResponseWriter, r *http.Request) {
	groups, err := s.bridge.ListAllUnreadMessages(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	total := 0
	for _, g := range groups {
		total += len(g.Messages)
	}
	respondOK(w, map[string]any{
		"chats":         toChatMessagesViews(groups),
		"count":         len(groups),
		"totalMessages": total,
	})
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatID")
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	msgs, err := s.bridge.FetchMessages(r.Context(), chatID, limit)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"chatId":   chatID,
		"messages": toMessageViews(msgs),
		"count":    len(msgs),
	})
}

func (s *Server) handleChatUnread(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatID")
	msgs, err := s.bridge.FetchUnreadMessages(r.Context(), chatID)
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{
		"chatId":   chatID,
		"messages": toMessageViews(msgs),
		"count":    len(msgs),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	chat, err := s.bridge.MarkChatRead(r.Context(), r.PathValue("chatID"))
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{"chat": toChatView(chat)})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	res, err := s.bridge.MarkAllRead(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	results := make([]markResultView, 0, len(res.Results))
	for _, mr := range res.Results {
		v := markResultView{ChatID: mr.ChatID, Name: mr.Name, Success: mr.Err == nil}
		if mr.Err != nil {
			v.Error = mr.Err.Error()
		}
		results = append(results, v)
	}
	respondOK(w, map[string]any{
		"marked":  res.Marked,
		"failed":  res.Failed,
		"results": results,
	})
}

// parseLimit reads the optional ?limit= query parameter. Zero means "use
// the operation default".
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
