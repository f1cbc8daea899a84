// Package service содержит доменные правила: кто и что может делать с чатами
// и сообщениями, и как считаются непрочитанные. Вся проверка прав — здесь;
// handlers только разбирают запрос и переводят ошибки в HTTP-статусы.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/repository"
)

var (
	// ErrForbidden — у пользователя нет прав на операцию (роль или не участник).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound — чат или пользователь не существует.
	ErrNotFound = errors.New("not found")
	// ErrChatExists — чат для этой пары уже создан.
	ErrChatExists = errors.New("chat already exists")
	// ErrInvalidTarget — указанный пользователь не подходит как клиент чата.
	ErrInvalidTarget = errors.New("target user is not a client")
	// ErrValidation — некорректный ввод (пустой текст и т.п.).
	ErrValidation = errors.New("invalid input")
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type ChatStore interface {
	Create(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	GetUserChats(ctx context.Context, userID string) ([]model.Chat, error)
	UpdateClient(ctx context.Context, chatID, clientID string) error
	DeleteWithMessages(ctx context.Context, chatID string) error
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetChatMessages(ctx context.Context, chatID string) ([]model.Message, error)
	MarkRead(ctx context.Context, chatID, senderID string) error
	UnreadCount(ctx context.Context, chatID, senderID string) (int, error)
	TotalUnread(ctx context.Context, userID string, role model.Role) (int, error)
}

type ChatService struct {
	users UserStore
	chats ChatStore
	msgs  MessageStore
}

func NewChatService(users UserStore, chats ChatStore, msgs MessageStore) *ChatService {
	return &ChatService{users: users, chats: chats, msgs: msgs}
}

// CreateChat создаёт чат менеджера actor с клиентом clientID.
// Только менеджер может создавать чаты; целевой пользователь должен быть
// клиентом и не совпадать с actor. Дубликат пары отлавливает уникальный
// констрейнт БД — гонка двух одновременных созданий безопасна.
func (s *ChatService) CreateChat(ctx context.Context, actor *model.User, clientID string) (*model.Chat, error) {
	if actor.Role != model.RoleManager {
		return nil, ErrForbidden
	}
	if clientID == actor.ID {
		return nil, ErrInvalidTarget
	}
	target, err := s.users.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if target.Role != model.RoleClient {
		return nil, ErrInvalidTarget
	}

	chat := &model.Chat{
		ID:        uuid.New().String(),
		ManagerID: actor.ID,
		ClientID:  target.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		if errors.Is(err, repository.ErrChatExists) {
			return nil, ErrChatExists
		}
		return nil, err
	}
	return chat, nil
}

// ListChats возвращает чаты, где actor — участник, каждый с числом
// непрочитанных сообщений от второй стороны. Чужие чаты не видны никогда:
// выборка идёт только по участию actor.
func (s *ChatService) ListChats(ctx context.Context, actor *model.User) ([]model.ChatWithUnread, error) {
	chats, err := s.chats.GetUserChats(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	result := make([]model.ChatWithUnread, 0, len(chats))
	for i := range chats {
		unread, err := s.UnreadCount(ctx, actor, &chats[i])
		if err != nil {
			return nil, err
		}
		result = append(result, model.ChatWithUnread{Chat: chats[i], UnreadCount: unread})
	}
	return result, nil
}

// GetChat возвращает один чат с непрочитанными; доступен только участникам.
func (s *ChatService) GetChat(ctx context.Context, actor *model.User, chatID string) (*model.ChatWithUnread, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actor.ID) {
		return nil, ErrForbidden
	}
	unread, err := s.UnreadCount(ctx, actor, chat)
	if err != nil {
		return nil, err
	}
	return &model.ChatWithUnread{Chat: *chat, UnreadCount: unread}, nil
}

// UpdateChat переназначает клиента чата. Разрешено только менеджеру этого
// чата; новый клиент проходит те же проверки, что и при создании.
func (s *ChatService) UpdateChat(ctx context.Context, actor *model.User, chatID, newClientID string) (*model.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if actor.ID != chat.ManagerID {
		return nil, ErrForbidden
	}
	if newClientID == chat.ManagerID {
		return nil, ErrInvalidTarget
	}
	target, err := s.users.GetByID(ctx, newClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if target.Role != model.RoleClient {
		return nil, ErrInvalidTarget
	}
	if err := s.chats.UpdateClient(ctx, chatID, target.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrChatExists):
			return nil, ErrChatExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}
	chat.ClientID = target.ID
	return chat, nil
}

// DeleteChat удаляет чат вместе со всеми сообщениями (одна транзакция).
// Разрешено только менеджеру этого чата.
func (s *ChatService) DeleteChat(ctx context.Context, actor *model.User, chatID string) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if actor.ID != chat.ManagerID {
		return ErrForbidden
	}
	if err := s.chats.DeleteWithMessages(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SendMessage добавляет непрочитанное сообщение от actor в чат. Писать могут
// только участники; клиент — только в свой собственный чат.
func (s *ChatService) SendMessage(ctx context.Context, actor *model.User, chatID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrValidation
	}
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actor.ID) {
		return nil, ErrForbidden
	}
	if actor.Role == model.RoleClient && actor.ID != chat.ClientID {
		return nil, ErrForbidden
	}

	msg := &model.Message{
		ID:        uuid.New().String(),
		ChatID:    chat.ID,
		SenderID:  actor.ID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		IsRead:    false,
	}
	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages возвращает все сообщения чата от старых к новым. Доступно
// только участникам. Сами сообщения не меняются: пометку о прочтении делает
// отдельный вызов MarkCounterpartyRead.
func (s *ChatService) ListMessages(ctx context.Context, actor *model.User, chatID string) ([]model.Message, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actor.ID) {
		return nil, ErrForbidden
	}
	return s.msgs.GetChatMessages(ctx, chatID)
}

// MarkCounterpartyRead помечает прочитанными сообщения второй стороны в чате.
// Сообщения самого actor не трогаются. Вызов идемпотентен: уже прочитанные
// строки не меняются, повторный вызов ничего не делает.
func (s *ChatService) MarkCounterpartyRead(ctx context.Context, actor *model.User, chatID string) error {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(actor.ID) {
		return ErrForbidden
	}
	return s.msgs.MarkRead(ctx, chatID, chat.Counterparty(actor.ID))
}

func (s *ChatService) getChat(ctx context.Context, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return chat, nil
}
