package handler

import (
	"net/http"

	"github.com/crmchat/internal/service"
)

type UserHandler struct {
	users service.UserStore
}

func NewUserHandler(users service.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r, h.users)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u.ToPublic())
}
