// users.go — сервис управления пользователями.
// CRUD пользователей: хэширование пароля bcrypt, нормализация роли,
// запрет удаления собственной учётной записи, начальный администратор.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/rbac"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// UserInput — данные для создания или обновления пользователя.
// При обновлении пустой Password означает «не менять».
type UserInput struct {
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Password  string  `json:"password" validate:"omitempty,min=6,max=72"`
	FirstName string  `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  string  `json:"last_name" validate:"omitempty,min=2,max=50"`
	Role      string  `json:"role" validate:"required,role"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	IsActive  *bool   `json:"is_active"`
}

func (in *UserInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = trimPtr(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = strings.TrimSpace(in.Role)
	in.Phone = trimPtr(in.Phone)
}

// UserTxFunc выполняет fn с репозиторием пользователей внутри транзакции.
type UserTxFunc func(ctx context.Context, fn func(users repository.UserRepository) error) error

// UserService — сервис управления пользователями.
type UserService struct {
	users      repository.UserRepository
	identities *IdentityService
	inTx       UserTxFunc
	bcryptCost int
	logger     *slog.Logger
}

// NewUserService создаёт сервис пользователей.
// inTx может быть nil — тогда операции выполняются без транзакции.
func NewUserService(
	users repository.UserRepository,
	identities *IdentityService,
	inTx UserTxFunc,
	bcryptCost int,
	logger *slog.Logger,
) *UserService {
	if inTx == nil {
		inTx = func(ctx context.Context, fn func(repository.UserRepository) error) error {
			return fn(users)
		}
	}
	return &UserService{
		users:      users,
		identities: identities,
		inTx:       inTx,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает пользователей с фильтрацией.
func (s *UserService) List(ctx context.Context, filters repository.UserListFilters) ([]*model.User, error) {
	if filters.Role != nil {
		role := canonicalRole(*filters.Role)
		filters.Role = &role
	}
	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("получение списка пользователей: %w", err)
	}
	return users, nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя %d: %w", id, err)
	}
	return u, nil
}

// Create создаёт пользователя. Пароль обязателен.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	in.normalize()
	if err := s.validate(in, true); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         canonicalRole(in.Role),
		Phone:        in.Phone,
		IsActive:     boolOr(in.IsActive, true),
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapConflict(err, "создание пользователя "+in.Username)
	}

	s.logger.Info("Пользователь создан",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("role", u.Role),
	)
	return u, nil
}

// Update обновляет пользователя. Пароль меняется, только если передан.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (*model.User, error) {
	in.normalize()
	if err := s.validate(in, false); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Username = in.Username
	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.Role = canonicalRole(in.Role)
	u.Phone = in.Phone
	u.IsActive = boolOr(in.IsActive, u.IsActive)

	var hash string
	if in.Password != "" {
		if hash, err = s.hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	err = s.inTx(ctx, func(users repository.UserRepository) error {
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		if hash != "" {
			return users.UpdatePassword(ctx, id, hash)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapConflict(err, fmt.Sprintf("обновление пользователя %d", id))
	}
	s.identities.Invalidate(id)

	s.logger.Info("Пользователь обновлён",
		slog.Int64("user_id", id),
		slog.String("role", u.Role),
		slog.Bool("password_changed", hash != ""),
	)
	return u, nil
}

// Delete удаляет пользователя. Удалить самого себя нельзя.
func (s *UserService) Delete(ctx context.Context, id, callerID int64) error {
	if id == callerID {
		return ErrSelfDelete
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление пользователя %d: %w", id, err)
	}
	s.identities.Invalidate(id)

	s.logger.Info("Пользователь удалён",
		slog.Int64("user_id", id),
		slog.Int64("deleted_by", callerID),
	)
	return nil
}

// EnsureBootstrapAdmin создаёт администратора, если таблица users пуста.
// Возвращает true, если администратор создан.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	in := UserInput{Username: username, Password: password, Role: rbac.RoleAdmin}
	in.normalize()
	if err := s.validate(in, true); err != nil {
		return false, fmt.Errorf("начальный администратор: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return false, err
	}

	created := false
	err = s.inTx(ctx, func(users repository.UserRepository) error {
		count, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		u := &model.User{
			Username:     in.Username,
			PasswordHash: hash,
			Role:         rbac.RoleAdmin,
			IsActive:     true,
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("создание начального администратора: %w", err)
	}

	if created {
		s.logger.Info("Создан начальный администратор", slog.String("username", in.Username))
	}
	return created, nil
}

func (s *UserService) validate(in UserInput, requirePassword bool) error {
	var v *ValidationError
	if err := validateStruct(in); err != nil {
		if !errors.As(err, &v) {
			return err
		}
	}
	if requirePassword && in.Password == "" {
		if v == nil {
			v = &ValidationError{}
		}
		v.Add("password", "обязательное поле")
	}
	if v == nil {
		return nil
	}
	return v.orNil()
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("хэширование пароля: %w", err)
	}
	return string(hash), nil
}

// canonicalRole приводит роль к каноническому имени, неизвестную возвращает как есть.
func canonicalRole(role string) string {
	if r, ok := rbac.Normalize(role); ok {
		return r
	}
	return role
}

// mapConflict переводит repository.ErrConflict в ErrConflict с сообщением репозитория.
func mapConflict(err error, op string) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %s", ErrConflict, strings.TrimPrefix(err.Error(), repository.ErrConflict.Error()+": "))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
