package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/service"
)

type ChatHandler struct {
	svc   *service.ChatService
	users service.UserStore
}

func NewChatHandler(svc *service.ChatService, users service.UserStore) *ChatHandler {
	return &ChatHandler{svc: svc, users: users}
}

type CreateChatRequest struct {
	Client string `json:"client"`
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Client == "" {
		writeError(w, http.StatusBadRequest, "client is required")
		return
	}
	chat, err := h.svc.CreateChat(r.Context(), actor, req.Client)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.ChatWithUnread{Chat: *chat})
}

func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	chats, err := h.svc.ListChats(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	chat, err := h.svc.GetChat(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

type UpdateChatRequest struct {
	Client string `json:"client"`
}

// UpdateChat переназначает клиента чата. Единственное изменяемое поле —
// client; manager и created_at задаются сервером и не правятся.
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	var req UpdateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Client == "" {
		writeError(w, http.StatusBadRequest, "client is required")
		return
	}
	chat, err := h.svc.UpdateChat(r.Context(), actor, chi.URLParam(r, "id"), req.Client)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	if err := h.svc.DeleteChat(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type TotalUnreadResponse struct {
	UnreadCount int `json:"unread_count"`
}

func (h *ChatHandler) TotalUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	count, err := h.svc.TotalUnread(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalUnreadResponse{UnreadCount: count})
}
