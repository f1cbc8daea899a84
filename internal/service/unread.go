package service

import (
	"context"

	"github.com/crmchat/internal/model"
)

// UnreadCount возвращает число непрочитанных сообщений от второй стороны
// чата для actor. Если actor не участник — 0 (до этой ветки при нормальном
// вызове дело не доходит: доступ к чату проверяется раньше).
func (s *ChatService) UnreadCount(ctx context.Context, actor *model.User, chat *model.Chat) (int, error) {
	counterparty := chat.Counterparty(actor.ID)
	if counterparty == "" {
		return 0, nil
	}
	return s.msgs.UnreadCount(ctx, chat.ID, counterparty)
}

// TotalUnread суммирует непрочитанные от второй стороны по всем чатам actor:
// менеджер видит сообщения клиентов своих чатов, клиент — сообщения
// менеджеров. Считается одним запросом в хранилище.
func (s *ChatService) TotalUnread(ctx context.Context, actor *model.User) (int, error) {
	return s.msgs.TotalUnread(ctx, actor.ID, actor.Role)
}
