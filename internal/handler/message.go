package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crmchat/internal/service"
)

type MessageHandler struct {
	svc   *service.ChatService
	users service.UserStore
}

func NewMessageHandler(svc *service.ChatService, users service.UserStore) *MessageHandler {
	return &MessageHandler{svc: svc, users: users}
}

// GetMessages возвращает сообщения чата от старых к новым и после выдачи
// помечает прочитанными сообщения второй стороны. Ответ показывает is_read
// на момент запроса; следующий запрос увидит их уже прочитанными.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	chatID := chi.URLParam(r, "chatId")

	messages, err := h.svc.ListMessages(r.Context(), actor, chatID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.svc.MarkCounterpartyRead(r.Context(), actor, chatID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	msg, err := h.svc.SendMessage(r.Context(), actor, chi.URLParam(r, "chatId"), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
