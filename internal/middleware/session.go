package middleware

import (
	"context"
	"net/http"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/storage"
)

// SessionAuth проверяет X-Session-Id (заголовок или query-параметр
// session_id) по SessionStore и кладёт user_id в контекст. Без валидной
// сессии — 401 JSON.
func SessionAuth(store storage.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get("X-Session-Id")
			if sessionID == "" {
				sessionID = r.URL.Query().Get("session_id")
			}
			if sessionID == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			userID, err := store.GetSession(r.Context(), sessionID)
			if err != nil {
				logger.Errorf("session lookup %s: %v", MaskSessionID(sessionID), err)
				http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
				return
			}
			if userID == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
