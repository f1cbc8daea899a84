package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/repository"
	"github.com/crmchat/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

const minPasswordLen = 8

// AuthService — регистрация, вход по паролю и сессии. Пароли хранятся как
// bcrypt-хэши; сессия — непрозрачный id в SessionStore.
type AuthService struct {
	users UserStore
	store storage.SessionStore
}

func NewAuthService(users UserStore, store storage.SessionStore) *AuthService {
	return &AuthService{users: users, store: store}
}

// Register создаёт пользователя с фиксированной ролью. Роль валидируется
// один раз здесь; дальше код полагается на то, что в БД только manager/client.
func (s *AuthService) Register(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < minPasswordLen {
		return nil, ErrValidation
	}
	if !role.Valid() {
		return nil, ErrValidation
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Login проверяет пароль и выдаёт новый session_id.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	sessionID := uuid.New().String()
	if err := s.store.SetSession(ctx, sessionID, u.ID); err != nil {
		return "", nil, err
	}
	return sessionID, u, nil
}

// Logout удаляет сессию. Отсутствующая сессия не ошибка.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}
