package httpapi

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type StartConversationRequestDTO struct {
	ListingID  string `json:"listing_id"`
	WithUserID string `json:"with_user_id"`
}

type SendMessageRequestDTO struct {
	Text string `json:"text"`
}

type UnreadCountDTO struct {
	UnreadCount int64 `json:"unread_count"`
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if !identity.IsAuthenticated() {
		respondJSON(w, http.StatusOK, []*domain.Conversation{})
		return
	}

	conversations, err := s.deps.Conversations.ListConversations(r.Context(), identity)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	if conversations == nil {
		conversations = []*domain.Conversation{}
	}
	respondJSON(w, http.StatusOK, conversations)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if !identity.IsAuthenticated() {
		respondJSON(w, http.StatusOK, UnreadCountDTO{})
		return
	}

	n, err := s.deps.Conversations.UnreadCount(r.Context(), identity)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, UnreadCountDTO{UnreadCount: n})
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	conv, err := s.deps.Conversations.Start(r.Context(), auth.FromContext(r.Context()), req.ListingID, req.WithUserID)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Conversations.Messages(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := s.deps.Conversations.Send(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Conversations.MarkRead(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Notifications.Aggregate(r.Context(), auth.FromContext(r.Context())))
}
