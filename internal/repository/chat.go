package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
)

// ErrChatExists — чат для пары (manager_id, client_id) уже есть. Источник
// истины — уникальный констрейнт в БД, а не проверка в коде: две параллельные
// вставки не создадут дубликат.
var ErrChatExists = errors.New("chat already exists")

// uniqueViolation — код ошибки Postgres 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Create(ctx context.Context, c *model.Chat) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chats (id, manager_id, client_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.ManagerID, c.ClientID, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrChatExists
	}
	if err != nil {
		return fmt.Errorf("chatRepo.Create: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, manager_id, client_id, created_at FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.ManagerID, &c.ClientID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	return c, nil
}

// GetUserChats возвращает чаты, где userID — менеджер или клиент, в порядке
// создания (стабильный порядок: created_at, затем id).
func (r *ChatRepository) GetUserChats(ctx context.Context, userID string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetUserChats", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, manager_id, client_id, created_at
		 FROM chats
		 WHERE manager_id = $1 OR client_id = $1
		 ORDER BY created_at, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetUserChats query: %w", err)
	}
	defer rows.Close()

	chats := make([]model.Chat, 0, 16)
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.ManagerID, &c.ClientID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatRepo.GetUserChats scan: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.GetUserChats rows: %w", err)
	}
	return chats, nil
}

// UpdateClient переназначает клиента чата. Уникальность новой пары
// гарантирует тот же констрейнт, что и при создании.
func (r *ChatRepository) UpdateClient(ctx context.Context, chatID, clientID string) error {
	defer logger.DeferLogDuration("chat.UpdateClient", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats SET client_id = $1 WHERE id = $2`,
		clientID, chatID,
	)
	if isUniqueViolation(err) {
		return ErrChatExists
	}
	if err != nil {
		return fmt.Errorf("chatRepo.UpdateClient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWithMessages удаляет чат и все его сообщения одной транзакцией.
// Каскад сделан явно на уровне приложения: сначала сообщения, затем чат.
func (r *ChatRepository) DeleteWithMessages(ctx context.Context, chatID string) error {
	defer logger.DeferLogDuration("chat.DeleteWithMessages", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chatRepo.DeleteWithMessages begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("chatRepo.DeleteWithMessages messages: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("chatRepo.DeleteWithMessages chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chatRepo.DeleteWithMessages commit: %w", err)
	}
	return nil
}
