package model

import "time"

// Message создаётся непрочитанным. is_read переключается в true один раз —
// когда второй участник чата запрашивает список сообщений; обратно в false
// сообщение не возвращается.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}
