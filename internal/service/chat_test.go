package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/repository"
)

// Фейковые хранилища повторяют контракт репозиториев, включая уникальность
// пары (manager_id, client_id) — как констрейнт в БД.

type fakeUserStore struct {
	users map[string]*model.User
}

func (s *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, ex := range s.users {
		if ex.Username == u.Username {
			return repository.ErrUsernameTaken
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeChatStore struct {
	chats []*model.Chat
	msgs  *fakeMessageStore
}

func (s *fakeChatStore) Create(_ context.Context, c *model.Chat) error {
	for _, ex := range s.chats {
		if ex.ManagerID == c.ManagerID && ex.ClientID == c.ClientID {
			return repository.ErrChatExists
		}
	}
	cp := *c
	s.chats = append(s.chats, &cp)
	return nil
}

func (s *fakeChatStore) GetByID(_ context.Context, id string) (*model.Chat, error) {
	for _, c := range s.chats {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeChatStore) GetUserChats(_ context.Context, userID string) ([]model.Chat, error) {
	out := make([]model.Chat, 0)
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeChatStore) UpdateClient(_ context.Context, chatID, clientID string) error {
	var target *model.Chat
	for _, c := range s.chats {
		if c.ID == chatID {
			target = c
			break
		}
	}
	if target == nil {
		return repository.ErrNotFound
	}
	for _, c := range s.chats {
		if c.ID != chatID && c.ManagerID == target.ManagerID && c.ClientID == clientID {
			return repository.ErrChatExists
		}
	}
	target.ClientID = clientID
	return nil
}

func (s *fakeChatStore) DeleteWithMessages(_ context.Context, chatID string) error {
	for i, c := range s.chats {
		if c.ID == chatID {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			kept := s.msgs.messages[:0]
			for _, m := range s.msgs.messages {
				if m.ChatID != chatID {
					kept = append(kept, m)
				}
			}
			s.msgs.messages = kept
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeMessageStore struct {
	messages []*model.Message
	chats    *fakeChatStore
}

func (s *fakeMessageStore) Create(_ context.Context, m *model.Message) error {
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *fakeMessageStore) GetChatMessages(_ context.Context, chatID string) ([]model.Message, error) {
	out := make([]model.Message, 0)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkRead(_ context.Context, chatID, senderID string) error {
	for _, m := range s.messages {
		if m.ChatID == chatID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
		}
	}
	return nil
}

func (s *fakeMessageStore) UnreadCount(_ context.Context, chatID, senderID string) (int, error) {
	count := 0
	for _, m := range s.messages {
		if m.ChatID == chatID && m.SenderID == senderID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeMessageStore) TotalUnread(_ context.Context, userID string, role model.Role) (int, error) {
	count := 0
	for _, m := range s.messages {
		if m.IsRead {
			continue
		}
		chat, err := s.chats.GetByID(context.Background(), m.ChatID)
		if err != nil {
			continue
		}
		if role == model.RoleManager && chat.ManagerID == userID && m.SenderID == chat.ClientID {
			count++
		}
		if role == model.RoleClient && chat.ClientID == userID && m.SenderID == chat.ManagerID {
			count++
		}
	}
	return count, nil
}

type fixture struct {
	users *fakeUserStore
	chats *fakeChatStore
	msgs  *fakeMessageStore
	svc   *ChatService
}

func newFixture() *fixture {
	users := &fakeUserStore{users: make(map[string]*model.User)}
	chats := &fakeChatStore{}
	msgs := &fakeMessageStore{chats: chats}
	chats.msgs = msgs
	return &fixture{
		users: users,
		chats: chats,
		msgs:  msgs,
		svc:   NewChatService(users, chats, msgs),
	}
}

func (f *fixture) addUser(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New().String(), Username: username, Role: role}
	f.users.users[u.ID] = u
	return u
}

func TestCreateChat_ManagerCreates(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)

	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)
	req.Equal(manager.ID, chat.ManagerID)
	req.Equal(client.ID, chat.ClientID)
	req.NotEmpty(chat.ID)
	req.False(chat.CreatedAt.IsZero())
	req.Len(f.chats.chats, 1)
}

func TestCreateChat_NonManagerForbidden(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	client := f.addUser(t, "client", model.RoleClient)
	other := f.addUser(t, "other_client", model.RoleClient)

	_, err := f.svc.CreateChat(context.Background(), client, other.ID)
	req.ErrorIs(err, ErrForbidden)
	req.Empty(f.chats.chats)
}

func TestCreateChat_TargetMustBeClient(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	otherManager := f.addUser(t, "manager2", model.RoleManager)

	_, err := f.svc.CreateChat(context.Background(), manager, otherManager.ID)
	req.ErrorIs(err, ErrInvalidTarget)
	req.Empty(f.chats.chats)
}

func TestCreateChat_SelfChatRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)

	_, err := f.svc.CreateChat(context.Background(), manager, manager.ID)
	req.ErrorIs(err, ErrInvalidTarget)
	req.Empty(f.chats.chats)
}

func TestCreateChat_UnknownTarget(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)

	_, err := f.svc.CreateChat(context.Background(), manager, uuid.New().String())
	req.ErrorIs(err, ErrNotFound)
}

func TestCreateChat_DuplicatePairConflicts(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)

	_, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)
	_, err = f.svc.CreateChat(context.Background(), manager, client.ID)
	req.ErrorIs(err, ErrChatExists)
	req.Len(f.chats.chats, 1)
}

func TestListChats_OnlyOwnChatsVisible(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	managerA := f.addUser(t, "manager_a", model.RoleManager)
	managerB := f.addUser(t, "manager_b", model.RoleManager)
	client1 := f.addUser(t, "client1", model.RoleClient)
	client2 := f.addUser(t, "client2", model.RoleClient)

	_, err := f.svc.CreateChat(context.Background(), managerA, client1.ID)
	req.NoError(err)
	_, err = f.svc.CreateChat(context.Background(), managerA, client2.ID)
	req.NoError(err)
	_, err = f.svc.CreateChat(context.Background(), managerB, client1.ID)
	req.NoError(err)

	chatsA, err := f.svc.ListChats(context.Background(), managerA)
	req.NoError(err)
	req.Len(chatsA, 2)
	for _, c := range chatsA {
		req.Equal(managerA.ID, c.ManagerID)
	}

	chatsB, err := f.svc.ListChats(context.Background(), managerB)
	req.NoError(err)
	req.Len(chatsB, 1)

	// клиент видит оба своих чата — от обоих менеджеров
	chatsC, err := f.svc.ListChats(context.Background(), client1)
	req.NoError(err)
	req.Len(chatsC, 2)
}

func TestListChats_UnreadIsActorRelative(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "from client")
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), manager, chat.ID, "from manager")
	req.NoError(err)

	forManager, err := f.svc.ListChats(context.Background(), manager)
	req.NoError(err)
	req.Equal(1, forManager[0].UnreadCount)

	forClient, err := f.svc.ListChats(context.Background(), client)
	req.NoError(err)
	req.Equal(1, forClient[0].UnreadCount)
}

func TestUpdateChat_OnlyManagerOfChat(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	newClient := f.addUser(t, "client2", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.UpdateChat(context.Background(), client, chat.ID, newClient.ID)
	req.ErrorIs(err, ErrForbidden)

	updated, err := f.svc.UpdateChat(context.Background(), manager, chat.ID, newClient.ID)
	req.NoError(err)
	req.Equal(newClient.ID, updated.ClientID)
}

func TestUpdateChat_ValidatesNewClient(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	otherManager := f.addUser(t, "manager2", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	client2 := f.addUser(t, "client2", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.UpdateChat(context.Background(), manager, chat.ID, otherManager.ID)
	req.ErrorIs(err, ErrInvalidTarget)

	_, err = f.svc.UpdateChat(context.Background(), manager, chat.ID, manager.ID)
	req.ErrorIs(err, ErrInvalidTarget)

	_, err = f.svc.UpdateChat(context.Background(), manager, chat.ID, uuid.New().String())
	req.ErrorIs(err, ErrNotFound)

	// переназначение на клиента, с которым уже есть чат — конфликт пары
	_, err = f.svc.CreateChat(context.Background(), manager, client2.ID)
	req.NoError(err)
	_, err = f.svc.UpdateChat(context.Background(), manager, chat.ID, client2.ID)
	req.ErrorIs(err, ErrChatExists)
}

func TestDeleteChat_CascadesMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "hi")
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), manager, chat.ID, "hello")
	req.NoError(err)

	// клиент удалить не может, чат и сообщения остаются
	err = f.svc.DeleteChat(context.Background(), client, chat.ID)
	req.ErrorIs(err, ErrForbidden)
	req.Len(f.chats.chats, 1)
	req.Len(f.msgs.messages, 2)

	err = f.svc.DeleteChat(context.Background(), manager, chat.ID)
	req.NoError(err)
	req.Empty(f.chats.chats)
	req.Empty(f.msgs.messages)
}

func TestSendMessage_ParticipantsOnly(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	outsider := f.addUser(t, "outsider", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	msg, err := f.svc.SendMessage(context.Background(), client, chat.ID, "hi")
	req.NoError(err)
	req.False(msg.IsRead)
	req.Equal(client.ID, msg.SenderID)

	// чужой клиент не может писать в этот чат; число сообщений не меняется
	_, err = f.svc.SendMessage(context.Background(), outsider, chat.ID, "sneaky")
	req.ErrorIs(err, ErrForbidden)
	req.Len(f.msgs.messages, 1)
}

func TestSendMessage_EmptyTextRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(context.Background(), manager, chat.ID, "   ")
	req.ErrorIs(err, ErrValidation)
	req.Empty(f.msgs.messages)
}

func TestListMessages_OrderAndAccess(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	outsider := f.addUser(t, "outsider", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "first")
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), manager, chat.ID, "second")
	req.NoError(err)

	msgs, err := f.svc.ListMessages(context.Background(), manager, chat.ID)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("first", msgs[0].Text)
	req.Equal("second", msgs[1].Text)

	_, err = f.svc.ListMessages(context.Background(), outsider, chat.ID)
	req.ErrorIs(err, ErrForbidden)
}

func TestMarkCounterpartyRead_FlipsOnlyCounterpartyMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "from client")
		req.NoError(err)
	}
	_, err = f.svc.SendMessage(context.Background(), manager, chat.ID, "from manager")
	req.NoError(err)

	// клиент читает чат: прочитанными становятся только сообщения менеджера
	err = f.svc.MarkCounterpartyRead(context.Background(), client, chat.ID)
	req.NoError(err)
	for _, m := range f.msgs.messages {
		if m.SenderID == manager.ID {
			req.True(m.IsRead)
		} else {
			req.False(m.IsRead, "client's own messages must stay unread")
		}
	}

	// менеджер читает чат: все сообщения клиента становятся прочитанными
	err = f.svc.MarkCounterpartyRead(context.Background(), manager, chat.ID)
	req.NoError(err)
	for _, m := range f.msgs.messages {
		req.True(m.IsRead)
	}
}

func TestMarkCounterpartyRead_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "hi")
	req.NoError(err)

	err = f.svc.MarkCounterpartyRead(context.Background(), manager, chat.ID)
	req.NoError(err)
	first := make([]bool, 0, len(f.msgs.messages))
	for _, m := range f.msgs.messages {
		first = append(first, m.IsRead)
	}

	err = f.svc.MarkCounterpartyRead(context.Background(), manager, chat.ID)
	req.NoError(err)
	for i, m := range f.msgs.messages {
		req.Equal(first[i], m.IsRead)
	}
}

func TestTotalUnread_DropsAfterRead(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "one")
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "two")
	req.NoError(err)

	total, err := f.svc.TotalUnread(context.Background(), manager)
	req.NoError(err)
	req.Equal(2, total)

	err = f.svc.MarkCounterpartyRead(context.Background(), manager, chat.ID)
	req.NoError(err)

	total, err = f.svc.TotalUnread(context.Background(), manager)
	req.NoError(err)
	req.Equal(0, total)
}

func TestUnreadCount_NonParticipantIsZero(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	manager := f.addUser(t, "manager", model.RoleManager)
	client := f.addUser(t, "client", model.RoleClient)
	outsider := f.addUser(t, "outsider", model.RoleClient)
	chat, err := f.svc.CreateChat(context.Background(), manager, client.ID)
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), client, chat.ID, "hi")
	req.NoError(err)

	stored, err := f.chats.GetByID(context.Background(), chat.ID)
	req.NoError(err)
	count, err := f.svc.UnreadCount(context.Background(), outsider, stored)
	req.NoError(err)
	req.Equal(0, count)
}
