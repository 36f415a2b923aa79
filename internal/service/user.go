package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"immigration/internal/apperr"
	"immigration/internal/middleware"
	"immigration/internal/model"
	"immigration/internal/repo"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials: неизвестный пользователь, пароль не задан или не совпал.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserService ведёт учёт сотрудников и выпускает им токены.
type UserService struct {
	repo   repo.UserRepository
	secret string
}

func NewUserService(r repo.UserRepository, secret string) *UserService {
	return &UserService{repo: r, secret: secret}
}

// EnsureUser возвращает пользователя по имени, создавая его при отсутствии.
func (s *UserService) EnsureUser(ctx context.Context, username string) (*model.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, apperr.NewValidation("username", nil, "username is required")
	}
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}
	u, err = s.repo.CreateUser(ctx, &model.User{Username: username})
	if errors.Is(err, apperr.ErrConflict) {
		// создан параллельно
		u, err = s.repo.GetUserByUsername(ctx, username)
		return u, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return u, true, nil
}

// IssueToken подписывает JWT для пользователя секретом сервера.
func (s *UserService) IssueToken(userID uint) (string, error) {
	return middleware.IssueToken(userID, s.secret)
}

// ResolveActor находит пользователя по id из токена. Неизвестный id даёт
// анонимного актора.
func (s *UserService) ResolveActor(ctx context.Context, userID uint, ok bool) Actor {
	if !ok {
		return Actor{}
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Actor{}
	}
	id := u.ID
	return Actor{UserID: &id, Username: u.Username}
}

// SetPassword задаёт пароль сотруднику, создавая его при отсутствии.
func (s *UserService) SetPassword(ctx context.Context, username, password string) (*model.User, bool, error) {
	if password == "" {
		return nil, false, apperr.NewValidation("password", nil, "password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	u, created, err := s.EnsureUser(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if err := s.repo.SetPassword(ctx, u.ID, string(hash)); err != nil {
		return nil, false, err
	}
	u.Password = string(hash)
	return u, created, nil
}

// Login проверяет пароль сотрудника.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Password == "" || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
