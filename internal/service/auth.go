// auth.go — вход по имени и паролю, профиль текущего пользователя.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// dummyHash сравнивается с паролем, когда пользователь не найден,
// чтобы время ответа не выдавало существование username.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("scoreteam-dummy-password"), bcrypt.DefaultCost)

// AuthService — аутентификация пользователей.
type AuthService struct {
	users      repository.UserRepository
	tokens     *TokenIssuer
	identities *IdentityService
	logger     *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(
	users repository.UserRepository,
	tokens *TokenIssuer,
	identities *IdentityService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		identities: identities,
		logger:     logger.With(slog.String("component", "auth_service")),
	}
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	*IssuedToken
	User *model.User
}

// Login проверяет имя и пароль и выпускает токен.
// Неизвестный пользователь, неверный пароль и неактивная учётная запись
// дают одну и ту же ошибку ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		v := &ValidationError{}
		if username == "" {
			v.Add("username", "обязательное поле")
		}
		if password == "" {
			v.Add("password", "обязательное поле")
		}
		return nil, v
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.logger.Info("Неудачный вход: пользователь не найден", slog.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("получение пользователя %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Неудачный вход: неверный пароль", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		s.logger.Info("Неудачный вход: пользователь неактивен", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	u.Role = canonicalRole(u.Role)

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("role", u.Role),
	)
	return &LoginResult{IssuedToken: token, User: u}, nil
}

// Me возвращает профиль пользователя по ID.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение профиля %d: %w", userID, err)
	}
	u.Role = canonicalRole(u.Role)
	return u, nil
}

// UpdatePhone меняет телефон текущего пользователя. Телефон обязателен.
func (s *AuthService) UpdatePhone(ctx context.Context, userID int64, phone *string) (*model.User, error) {
	phone = trimPtr(phone)
	if phone == nil {
		return nil, NewValidationError("phone", "обязательное поле")
	}
	if err := validateStruct(struct {
		Phone string `json:"phone" validate:"max=20"`
	}{Phone: *phone}); err != nil {
		return nil, err
	}

	if err := s.users.UpdatePhone(ctx, userID, phone); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление телефона пользователя %d: %w", userID, err)
	}
	s.identities.Invalidate(userID)

	s.logger.Info("Телефон обновлён", slog.Int64("user_id", userID))
	return s.Me(ctx, userID)
}
