// agents.go — сервис управления агентами.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// AgentInput — данные для создания или обновления агента.
type AgentInput struct {
	FirstName string    `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string    `json:"last_name" validate:"required,min=2,max=50"`
	Area      string    `json:"area" validate:"required,max=100"`
	Position  string    `json:"position" validate:"required,max=100"`
	HireDate  time.Time `json:"hire_date" validate:"required"`
	Email     *string   `json:"email" validate:"omitempty,email,max=255"`
	Phone     *string   `json:"phone" validate:"omitempty,max=20"`
	IsActive  *bool     `json:"is_active"`
}

func (in *AgentInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Area = strings.TrimSpace(in.Area)
	in.Position = strings.TrimSpace(in.Position)
	in.Email = trimPtr(in.Email)
	in.Phone = trimPtr(in.Phone)
}

// AgentService — сервис управления агентами.
type AgentService struct {
	agents repository.AgentRepository
	logger *slog.Logger
}

// NewAgentService создаёт сервис агентов.
func NewAgentService(agents repository.AgentRepository, logger *slog.Logger) *AgentService {
	return &AgentService{
		agents: agents,
		logger: logger.With(slog.String("component", "agent_service")),
	}
}

// List возвращает агентов с фильтрацией.
func (s *AgentService) List(ctx context.Context, filters repository.AgentListFilters) ([]*model.Agent, error) {
	agents, err := s.agents.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("получение списка агентов: %w", err)
	}
	return agents, nil
}

// Get возвращает агента по ID.
func (s *AgentService) Get(ctx context.Context, id int64) (*model.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение агента %d: %w", id, err)
	}
	return a, nil
}

// Create создаёт агента. По умолчанию агент активен.
func (s *AgentService) Create(ctx context.Context, in AgentInput) (*model.Agent, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	a := &model.Agent{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Area:      in.Area,
		Position:  in.Position,
		HireDate:  in.HireDate,
		Email:     in.Email,
		Phone:     in.Phone,
		IsActive:  boolOr(in.IsActive, true),
	}
	if err := s.agents.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("создание агента: %w", err)
	}

	s.logger.Info("Агент создан",
		slog.Int64("agent_id", a.ID),
		slog.String("name", a.FullName()),
	)
	return a, nil
}

// Update обновляет агента.
func (s *AgentService) Update(ctx context.Context, id int64, in AgentInput) (*model.Agent, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.Area = in.Area
	a.Position = in.Position
	a.HireDate = in.HireDate
	a.Email = in.Email
	a.Phone = in.Phone
	a.IsActive = boolOr(in.IsActive, a.IsActive)

	if err := s.agents.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление агента %d: %w", id, err)
	}

	s.logger.Info("Агент обновлён",
		slog.Int64("agent_id", id),
		slog.Bool("is_active", a.IsActive),
	)
	return a, nil
}

// Delete удаляет агента. Агента с оценками удалить нельзя (ErrInUse).
func (s *AgentService) Delete(ctx context.Context, id int64) error {
	if err := s.agents.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrReferenceViolation):
			return fmt.Errorf("%w: у агента есть оценки", ErrInUse)
		}
		return fmt.Errorf("удаление агента %d: %w", id, err)
	}

	s.logger.Info("Агент удалён", slog.Int64("agent_id", id))
	return nil
}
