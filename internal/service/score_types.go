// score_types.go — сервис управления типами оценок.
// Изменение score_value пересчитывает баллы всех существующих оценок
// этого типа при следующем чтении (report.ValueResolvedAtRead).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// ScoreTypeInput — данные для создания или обновления типа оценки.
type ScoreTypeInput struct {
	Name        string           `json:"name" validate:"required,min=2,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=255"`
	ScoreValue  *decimal.Decimal `json:"score_value"`
	IsActive    *bool            `json:"is_active"`
}

func (in *ScoreTypeInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimPtr(in.Description)
}

func (in ScoreTypeInput) validate() error {
	var v *ValidationError
	if err := validateStruct(in); err != nil {
		if !errors.As(err, &v) {
			return err
		}
	}
	if v == nil {
		v = &ValidationError{}
	}
	if in.ScoreValue == nil {
		v.Add("score_value", "обязательное поле")
	} else if msg := validateScoreValue(*in.ScoreValue); msg != "" {
		v.Add("score_value", msg)
	}
	return v.orNil()
}

// ScoreTypeService — сервис управления типами оценок.
type ScoreTypeService struct {
	types  repository.ScoreTypeRepository
	logger *slog.Logger
}

// NewScoreTypeService создаёт сервис типов оценок.
func NewScoreTypeService(types repository.ScoreTypeRepository, logger *slog.Logger) *ScoreTypeService {
	return &ScoreTypeService{
		types:  types,
		logger: logger.With(slog.String("component", "score_type_service")),
	}
}

// List возвращает типы оценок с фильтрацией.
func (s *ScoreTypeService) List(ctx context.Context, filters repository.ScoreTypeListFilters) ([]*model.ScoreType, error) {
	types, err := s.types.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("получение списка типов оценок: %w", err)
	}
	return types, nil
}

// Get возвращает тип оценки по ID.
func (s *ScoreTypeService) Get(ctx context.Context, id int64) (*model.ScoreType, error) {
	st, err := s.types.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение типа оценки %d: %w", id, err)
	}
	return st, nil
}

// Create создаёт тип оценки. Дубликат имени — ErrConflict.
func (s *ScoreTypeService) Create(ctx context.Context, in ScoreTypeInput) (*model.ScoreType, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	st := &model.ScoreType{
		Name:        in.Name,
		Description: in.Description,
		ScoreValue:  *in.ScoreValue,
		IsActive:    boolOr(in.IsActive, true),
	}
	if err := s.types.Create(ctx, st); err != nil {
		return nil, mapConflict(err, "создание типа оценки "+in.Name)
	}

	s.logger.Info("Тип оценки создан",
		slog.Int64("score_type_id", st.ID),
		slog.String("name", st.Name),
		slog.String("score_value", st.ScoreValue.String()),
	)
	return st, nil
}

// Update обновляет тип оценки.
func (s *ScoreTypeService) Update(ctx context.Context, id int64, in ScoreTypeInput) (*model.ScoreType, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	st, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldValue := st.ScoreValue
	st.Name = in.Name
	st.Description = in.Description
	st.ScoreValue = *in.ScoreValue
	st.IsActive = boolOr(in.IsActive, st.IsActive)

	if err := s.types.Update(ctx, st); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapConflict(err, fmt.Sprintf("обновление типа оценки %d", id))
	}

	if !oldValue.Equal(st.ScoreValue) {
		s.logger.Warn("Изменено значение типа оценки — исторические суммы пересчитаны",
			slog.Int64("score_type_id", id),
			slog.String("old_value", oldValue.String()),
			slog.String("new_value", st.ScoreValue.String()),
		)
	} else {
		s.logger.Info("Тип оценки обновлён", slog.Int64("score_type_id", id))
	}
	return st, nil
}

// Delete удаляет тип оценки. Тип, используемый оценками, удалить нельзя (ErrInUse).
func (s *ScoreTypeService) Delete(ctx context.Context, id int64) error {
	if err := s.types.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrReferenceViolation):
			return fmt.Errorf("%w: тип оценки используется в оценках", ErrInUse)
		}
		return fmt.Errorf("удаление типа оценки %d: %w", id, err)
	}

	s.logger.Info("Тип оценки удалён", slog.Int64("score_type_id", id))
	return nil
}
