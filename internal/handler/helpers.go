package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/middleware"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/service"
)

// currentUser загружает актора по user_id из контекста сессии. Сессия могла
// пережить удаление пользователя — тогда 401.
func currentUser(w http.ResponseWriter, r *http.Request, users service.UserStore) (*model.User, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	u, err := users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return u, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError переводит доменные ошибки в HTTP-статусы:
// Forbidden → 403, NotFound → 404, конфликты и валидация → 400,
// всё остальное → 500 с записью в лог.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrChatExists):
		writeError(w, http.StatusBadRequest, "chat already exists")
	case errors.Is(err, service.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "target user is not a client")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid input")
	default:
		logger.Errorf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
