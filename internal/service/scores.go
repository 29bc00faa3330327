// scores.go — сервис фактов оценок.
// Создание: вставка и повторное чтение с JOIN (вложенные агент, тип, автор).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// Параметры пагинации списка оценок.
const (
	DefaultScoresLimit = 10
	MaxScoresLimit     = 100
)

// ScoreInput — данные для создания или обновления оценки.
type ScoreInput struct {
	AgentID     int64     `json:"agent_id" validate:"required,gt=0"`
	ScoreTypeID int64     `json:"score_type_id" validate:"required,gt=0"`
	ScoreDate   time.Time `json:"score_date" validate:"required"`
	Comment     *string   `json:"comment" validate:"omitempty,max=500"`
}

// ScoreQuery — фильтры и страница списка оценок.
type ScoreQuery struct {
	AgentID *int64
	Period  report.Period
	Page    int
	Limit   int
}

// ScorePage — страница развёрнутых оценок.
type ScorePage struct {
	Items      []report.ExpandedScore
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// ScoreService — сервис фактов оценок.
type ScoreService struct {
	scores repository.ScoreRepository
	logger *slog.Logger
}

// NewScoreService создаёт сервис оценок.
func NewScoreService(scores repository.ScoreRepository, logger *slog.Logger) *ScoreService {
	return &ScoreService{
		scores: scores,
		logger: logger.With(slog.String("component", "score_service")),
	}
}

// List возвращает страницу оценок. Page < 1 → 1, Limit вне 1..100 → 10.
func (s *ScoreService) List(ctx context.Context, q ScoreQuery) (*ScorePage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > MaxScoresLimit {
		q.Limit = DefaultScoresLimit
	}
	// OFFSET = (page-1)*limit не должен переполнить int
	if q.Page > math.MaxInt/q.Limit {
		q.Page = math.MaxInt / q.Limit
	}

	filters := repository.ScoreListFilters{AgentID: q.AgentID, Period: q.Period}

	rows, err := s.scores.List(ctx, filters, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return nil, fmt.Errorf("получение списка оценок: %w", err)
	}
	total, err := s.scores.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("подсчёт оценок: %w", err)
	}

	return &ScorePage{
		Items:      report.ExpandAll(rows),
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: totalPages(total, q.Limit),
	}, nil
}

// Get возвращает развёрнутую оценку по ID.
func (s *ScoreService) Get(ctx context.Context, id int64) (*report.ExpandedScore, error) {
	row, err := s.scores.GetJoined(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение оценки %d: %w", id, err)
	}
	es := report.Expand(*row)
	return &es, nil
}

// Create создаёт оценку от имени assignedBy и возвращает её развёрнутой.
func (s *ScoreService) Create(ctx context.Context, in ScoreInput, assignedBy int64) (*report.ExpandedScore, error) {
	in.Comment = trimPtr(in.Comment)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	sc := &model.Score{
		AgentID:     in.AgentID,
		ScoreTypeID: in.ScoreTypeID,
		AssignedBy:  &assignedBy,
		ScoreDate:   dateOnly(in.ScoreDate),
		Comment:     in.Comment,
	}
	if err := s.scores.Create(ctx, sc); err != nil {
		return nil, mapReference(err, "создание оценки")
	}

	s.logger.Info("Оценка создана",
		slog.Int64("score_id", sc.ID),
		slog.Int64("agent_id", sc.AgentID),
		slog.Int64("score_type_id", sc.ScoreTypeID),
		slog.Int64("assigned_by", assignedBy),
	)
	return s.Get(ctx, sc.ID)
}

// Update меняет агента, тип, дату и комментарий. Автор оценки не меняется.
func (s *ScoreService) Update(ctx context.Context, id int64, in ScoreInput) (*report.ExpandedScore, error) {
	in.Comment = trimPtr(in.Comment)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	sc := &model.Score{
		ID:          id,
		AgentID:     in.AgentID,
		ScoreTypeID: in.ScoreTypeID,
		ScoreDate:   dateOnly(in.ScoreDate),
		Comment:     in.Comment,
	}
	if err := s.scores.Update(ctx, sc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, mapReference(err, fmt.Sprintf("обновление оценки %d", id))
	}

	s.logger.Info("Оценка обновлена", slog.Int64("score_id", id))
	return s.Get(ctx, id)
}

// Delete удаляет оценку.
func (s *ScoreService) Delete(ctx context.Context, id int64) error {
	if err := s.scores.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление оценки %d: %w", id, err)
	}
	s.logger.Info("Оценка удалена", slog.Int64("score_id", id))
	return nil
}

// mapReference переводит нарушение внешнего ключа в ErrNotFound:
// оценка ссылается на несуществующего агента или тип.
func mapReference(err error, op string) error {
	if errors.Is(err, repository.ErrReferenceViolation) {
		return fmt.Errorf("%w: %s", ErrNotFound, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// totalPages = ceil(total / limit).
func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// dateOnly отбрасывает время, оставляя календарную дату в UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
