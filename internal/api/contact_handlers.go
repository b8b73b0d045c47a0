package api

import "net/http"

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.bridge.ListContacts(r.Context())
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	views := make([]contactView, 0, len(contacts))
	for _, c := range contacts {
		views = append(views, toContactView(c))
	}
	respondOK(w, map[string]any{
		"contacts": views,
		"count":    len(views),
	})
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.bridge.GetContact(r.Context(), r.PathValue("contactID"))
	if err != nil {
		s.respondOpError(w, err)
		return
	}
	respondOK(w, map[string]any{"contact": toContactView(contact)})
}
