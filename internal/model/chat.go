package model

import "time"

// Chat связывает одного менеджера с одним клиентом. Пара (manager_id,
// client_id) уникальна — второй чат между теми же пользователями создать
// нельзя.
type Chat struct {
	ID        string    `json:"id"`
	ManagerID string    `json:"manager_id"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is the chat's manager or client.
func (c *Chat) HasParticipant(userID string) bool {
	return userID == c.ManagerID || userID == c.ClientID
}

// Counterparty returns the other participant's user id, or "" if userID is
// not a participant.
func (c *Chat) Counterparty(userID string) string {
	switch userID {
	case c.ManagerID:
		return c.ClientID
	case c.ClientID:
		return c.ManagerID
	}
	return ""
}

// ChatWithUnread is the API representation of a chat: the chat itself plus
// the unread count relative to the requesting user.
type ChatWithUnread struct {
	Chat
	UnreadCount int `json:"unread_count"`
}
