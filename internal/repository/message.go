package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, text, created_at, is_read)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ChatID, m.SenderID, m.Text, m.CreatedAt, m.IsRead,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

// GetChatMessages возвращает все сообщения чата от старых к новым.
func (r *MessageRepository) GetChatMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.GetChatMessages", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, sender_id, text, created_at, is_read
		 FROM messages
		 WHERE chat_id = $1
		 ORDER BY created_at, id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetChatMessages query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, 32)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, fmt.Errorf("msgRepo.GetChatMessages scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.GetChatMessages rows: %w", err)
	}
	return messages, nil
}

// MarkRead помечает прочитанными все сообщения senderID в чате. Один bulk
// UPDATE: идемпотентен и безопасен при параллельных вызовах.
func (r *MessageRepository) MarkRead(ctx context.Context, chatID, senderID string) error {
	defer logger.DeferLogDuration("msg.MarkRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_read = true
		 WHERE chat_id = $1 AND sender_id = $2 AND is_read = false`,
		chatID, senderID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.MarkRead: %w", err)
	}
	return nil
}

// UnreadCount считает непрочитанные сообщения senderID в чате.
func (r *MessageRepository) UnreadCount(ctx context.Context, chatID, senderID string) (int, error) {
	defer logger.DeferLogDuration("msg.UnreadCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE chat_id = $1 AND sender_id = $2 AND is_read = false`,
		chatID, senderID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.UnreadCount: %w", err)
	}
	return count, nil
}

// TotalUnread считает непрочитанные сообщения от второй стороны по всем чатам
// пользователя: для менеджера — от клиентов его чатов, для клиента — от
// менеджеров.
func (r *MessageRepository) TotalUnread(ctx context.Context, userID string, role model.Role) (int, error) {
	defer logger.DeferLogDuration("msg.TotalUnread", time.Now())()
	var q string
	if role == model.RoleManager {
		q = `SELECT COUNT(*) FROM messages m
		     JOIN chats c ON c.id = m.chat_id
		     WHERE c.manager_id = $1 AND m.sender_id = c.client_id AND m.is_read = false`
	} else {
		q = `SELECT COUNT(*) FROM messages m
		     JOIN chats c ON c.id = m.chat_id
		     WHERE c.client_id = $1 AND m.sender_id = c.manager_id AND m.is_read = false`
	}
	var count int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("msgRepo.TotalUnread: %w", err)
	}
	return count, nil
}
