package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
)

// ScoreRepository — интерфейс CRUD для таблицы scores.
// Чтение возвращает строки JOIN-выборки (report.RawJoinRow):
// баллы факта берутся из текущего значения типа оценки.
type ScoreRepository interface {
	// Create создаёт оценку. Несуществующий агент или тип — ErrReferenceViolation.
	Create(ctx context.Context, s *model.Score) error
	// GetByID возвращает оценку без связанных сущностей.
	GetByID(ctx context.Context, id int64) (*model.Score, error)
	// GetJoined возвращает оценку со связанными агентом, типом и автором.
	GetJoined(ctx context.Context, id int64) (*report.RawJoinRow, error)
	// List возвращает страницу оценок по фильтрам.
	// Порядок: score_date DESC, created_at DESC.
	List(ctx context.Context, filters ScoreListFilters, limit, offset int) ([]report.RawJoinRow, error)
	// Count возвращает количество оценок по фильтрам.
	Count(ctx context.Context, filters ScoreListFilters) (int64, error)
	// Update обновляет агента, тип, дату и комментарий. assigned_by не меняется.
	Update(ctx context.Context, s *model.Score) error
	// Delete удаляет оценку.
	Delete(ctx context.Context, id int64) error
	// Facts возвращает все факты окна (и агента, если задан) для агрегации.
	Facts(ctx context.Context, period report.Period, agentID *int64) ([]report.RawJoinRow, error)
	// CountAll возвращает общее количество оценок без фильтров.
	CountAll(ctx context.Context) (int64, error)
	// Recent возвращает n последних по дате оценок.
	Recent(ctx context.Context, n int) ([]report.RawJoinRow, error)
}

// ScoreListFilters — фильтры списка оценок.
type ScoreListFilters struct {
	AgentID *int64
	// Period — окно по score_date; report.AllTime — без ограничения
	Period report.Period
}

type scoreRepo struct {
	db DBTX
}

// NewScoreRepository создаёт репозиторий оценок.
func NewScoreRepository(db DBTX) ScoreRepository {
	return &scoreRepo{db: db}
}

// scoreJoinSelect — выборка оценки со связанными сущностями.
// LEFT JOIN: потерянные связи дают NULL, а не пропуск строки.
const scoreJoinSelect = `
	SELECT s.id, s.agent_id, s.score_type_id, s.assigned_by, s.score_date, s.comment,
		s.created_at, s.updated_at,
		a.first_name, a.last_name, a.is_active,
		st.name, st.score_value::text,
		u.username, u.first_name, u.last_name
	FROM scores s
	LEFT JOIN agents a ON a.id = s.agent_id
	LEFT JOIN score_types st ON st.id = s.score_type_id
	LEFT JOIN users u ON u.id = s.assigned_by`

func scanJoinRow(row pgx.Row) (report.RawJoinRow, error) {
	var r report.RawJoinRow
	var value *string
	if err := row.Scan(
		&r.ScoreID, &r.AgentID, &r.ScoreTypeID, &r.AssignedBy, &r.ScoreDate, &r.Comment,
		&r.CreatedAt, &r.UpdatedAt,
		&r.AgentFirstName, &r.AgentLastName, &r.AgentIsActive,
		&r.ScoreTypeName, &value,
		&r.AssignedByUsername, &r.AssignedByFirstName, &r.AssignedByLastName,
	); err != nil {
		return r, err
	}
	if value != nil {
		d, err := decimal.NewFromString(*value)
		if err != nil {
			return r, fmt.Errorf("некорректное значение score_value %q: %w", *value, err)
		}
		r.ScoreTypeValue = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return r, nil
}

func collectJoinRows(rows pgx.Rows) ([]report.RawJoinRow, error) {
	defer rows.Close()

	result := []report.RawJoinRow{}
	for rows.Next() {
		r, err := scanJoinRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования оценки: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// buildScoreWhere строит WHERE-условие по агенту и окну дат.
func buildScoreWhere(filters ScoreListFilters, startArg int) (string, []any, int) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.AgentID != nil {
		conditions = append(conditions, fmt.Sprintf("s.agent_id = $%d", argNum))
		args = append(args, *filters.AgentID)
		argNum++
	}
	if from, to, ok := filters.Period.Bounds(); ok {
		conditions = append(conditions, fmt.Sprintf("s.score_date >= $%d AND s.score_date < $%d", argNum, argNum+1))
		args = append(args, from, to)
		argNum += 2
	}

	if len(conditions) == 0 {
		return "", args, argNum
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, argNum
}

func (r *scoreRepo) Create(ctx context.Context, s *model.Score) error {
	query := `
		INSERT INTO scores (agent_id, score_type_id, assigned_by, score_date, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.AgentID, s.ScoreTypeID, s.AssignedBy, s.ScoreDate, s.Comment,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrReferenceViolation, scoreReferenceMessage(err))
		}
		return fmt.Errorf("ошибка создания оценки: %w", err)
	}
	return nil
}

func (r *scoreRepo) GetByID(ctx context.Context, id int64) (*model.Score, error) {
	query := `
		SELECT id, agent_id, score_type_id, assigned_by, score_date, comment,
			created_at, updated_at
		FROM scores
		WHERE id = $1`

	s := &model.Score{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.AgentID, &s.ScoreTypeID, &s.AssignedBy, &s.ScoreDate, &s.Comment,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения оценки: %w", err)
	}
	return s, nil
}

func (r *scoreRepo) GetJoined(ctx context.Context, id int64) (*report.RawJoinRow, error) {
	row, err := scanJoinRow(r.db.QueryRow(ctx, scoreJoinSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения оценки: %w", err)
	}
	return &row, nil
}

func (r *scoreRepo) List(ctx context.Context, filters ScoreListFilters, limit, offset int) ([]report.RawJoinRow, error) {
	where, args, argNum := buildScoreWhere(filters, 1)

	query := fmt.Sprintf(`%s
		%s
		ORDER BY s.score_date DESC, s.created_at DESC, s.id DESC
		LIMIT $%d OFFSET $%d`, scoreJoinSelect, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка оценок: %w", err)
	}
	return collectJoinRows(rows)
}

func (r *scoreRepo) Count(ctx context.Context, filters ScoreListFilters) (int64, error) {
	where, args, _ := buildScoreWhere(filters, 1)

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM scores s `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта оценок: %w", err)
	}
	return count, nil
}

func (r *scoreRepo) CountAll(ctx context.Context) (int64, error) {
	return r.Count(ctx, ScoreListFilters{})
}

func (r *scoreRepo) Update(ctx context.Context, s *model.Score) error {
	query := `
		UPDATE scores
		SET agent_id = $2, score_type_id = $3, score_date = $4, comment = $5
		WHERE id = $1
		RETURNING assigned_by, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.AgentID, s.ScoreTypeID, s.ScoreDate, s.Comment,
	).Scan(&s.AssignedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrReferenceViolation, scoreReferenceMessage(err))
		}
		return fmt.Errorf("ошибка обновления оценки: %w", err)
	}
	return nil
}

func (r *scoreRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM scores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления оценки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scoreRepo) Facts(ctx context.Context, period report.Period, agentID *int64) ([]report.RawJoinRow, error) {
	where, args, _ := buildScoreWhere(ScoreListFilters{AgentID: agentID, Period: period}, 1)

	query := fmt.Sprintf(`%s
		%s
		ORDER BY s.score_date, s.id`, scoreJoinSelect, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки фактов оценок: %w", err)
	}
	return collectJoinRows(rows)
}

func (r *scoreRepo) Recent(ctx context.Context, n int) ([]report.RawJoinRow, error) {
	query := scoreJoinSelect + `
		ORDER BY s.score_date DESC, s.created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки последних оценок: %w", err)
	}
	return collectJoinRows(rows)
}

// scoreReferenceMessage уточняет, на какую сущность ссылка не найдена.
func scoreReferenceMessage(err error) string {
	name := constraintName(err)
	switch {
	case strings.Contains(name, "score_type"):
		return "тип оценки не найден"
	case strings.Contains(name, "agent"):
		return "агент не найден"
	case strings.Contains(name, "assigned_by"):
		return "пользователь не найден"
	default:
		return "связанная запись не найдена"
	}
}
