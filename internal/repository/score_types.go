package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/model"
)

// ScoreTypeRepository — интерфейс CRUD для таблицы score_types.
type ScoreTypeRepository interface {
	// Create создаёт тип оценки. Дубликат имени — ErrConflict.
	Create(ctx context.Context, st *model.ScoreType) error
	// GetByID возвращает тип оценки по ID.
	GetByID(ctx context.Context, id int64) (*model.ScoreType, error)
	// List возвращает типы оценок, упорядоченные по имени.
	List(ctx context.Context, filters ScoreTypeListFilters) ([]*model.ScoreType, error)
	// Update обновляет тип оценки.
	Update(ctx context.Context, st *model.ScoreType) error
	// Delete удаляет тип оценки. Если на него ссылаются оценки — ErrReferenceViolation.
	Delete(ctx context.Context, id int64) error
	// CountActive возвращает количество активных типов оценок.
	CountActive(ctx context.Context) (int64, error)
}

// ScoreTypeListFilters — фильтры списка типов оценок.
// IsActive == nil означает все типы.
type ScoreTypeListFilters struct {
	Search   *string
	IsActive *bool
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal
}

type scoreTypeRepo struct {
	db DBTX
}

// NewScoreTypeRepository создаёт репозиторий типов оценок.
func NewScoreTypeRepository(db DBTX) ScoreTypeRepository {
	return &scoreTypeRepo{db: db}
}

// score_value читается как текст, чтобы не терять точность NUMERIC.
const scoreTypeColumns = `id, name, description, score_value::text, is_active, created_at, updated_at`

func scanScoreType(row pgx.Row) (*model.ScoreType, error) {
	st := &model.ScoreType{}
	var value string
	if err := row.Scan(
		&st.ID, &st.Name, &st.Description, &value, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("некорректное значение score_value %q: %w", value, err)
	}
	st.ScoreValue = d
	return st, nil
}

func (r *scoreTypeRepo) Create(ctx context.Context, st *model.ScoreType) error {
	query := `
		INSERT INTO score_types (name, description, score_value, is_active)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		st.Name, st.Description, st.ScoreValue.String(), st.IsActive,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: тип оценки с таким именем уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания типа оценки: %w", err)
	}
	return nil
}

func (r *scoreTypeRepo) GetByID(ctx context.Context, id int64) (*model.ScoreType, error) {
	query := `SELECT ` + scoreTypeColumns + ` FROM score_types WHERE id = $1`

	st, err := scanScoreType(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения типа оценки: %w", err)
	}
	return st, nil
}

func (r *scoreTypeRepo) List(ctx context.Context, filters ScoreTypeListFilters) ([]*model.ScoreType, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+*filters.Search+"%")
		argNum++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argNum))
		args = append(args, *filters.IsActive)
		argNum++
	}
	if filters.MinValue != nil {
		conditions = append(conditions, fmt.Sprintf("score_value >= $%d::numeric", argNum))
		args = append(args, filters.MinValue.String())
		argNum++
	}
	if filters.MaxValue != nil {
		conditions = append(conditions, fmt.Sprintf("score_value <= $%d::numeric", argNum))
		args = append(args, filters.MaxValue.String())
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM score_types %s ORDER BY name`, scoreTypeColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка типов оценок: %w", err)
	}
	defer rows.Close()

	result := []*model.ScoreType{}
	for rows.Next() {
		st, err := scanScoreType(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа оценки: %w", err)
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (r *scoreTypeRepo) Update(ctx context.Context, st *model.ScoreType) error {
	query := `
		UPDATE score_types
		SET name = $2, description = $3, score_value = $4::numeric, is_active = $5
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		st.ID, st.Name, st.Description, st.ScoreValue.String(), st.IsActive,
	).Scan(&st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: тип оценки с таким именем уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления типа оценки: %w", err)
	}
	return nil
}

func (r *scoreTypeRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM score_types WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: тип оценки используется в оценках", ErrReferenceViolation)
		}
		return fmt.Errorf("ошибка удаления типа оценки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scoreTypeRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM score_types WHERE is_active = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта активных типов оценок: %w", err)
	}
	return count, nil
}
