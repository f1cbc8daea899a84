package storage

import "context"

// SessionStore — хранилище сессий (session_id → user_id).
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type SessionStore interface {
	SetSession(ctx context.Context, sessionID, userID string) error
	// GetSession возвращает user_id или "" если сессии нет/истекла.
	GetSession(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}
