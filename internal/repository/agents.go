package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
)

// AgentRepository — интерфейс CRUD для таблицы agents.
type AgentRepository interface {
	// Create создаёт агента.
	Create(ctx context.Context, a *model.Agent) error
	// GetByID возвращает агента по ID.
	GetByID(ctx context.Context, id int64) (*model.Agent, error)
	// List возвращает агентов, упорядоченных по имени и фамилии.
	List(ctx context.Context, filters AgentListFilters) ([]*model.Agent, error)
	// Update обновляет агента.
	Update(ctx context.Context, a *model.Agent) error
	// Delete удаляет агента. Если на агента ссылаются оценки — ErrReferenceViolation.
	Delete(ctx context.Context, id int64) error
	// CountActive возвращает количество активных агентов.
	CountActive(ctx context.Context) (int64, error)
	// ActiveRefs возвращает активных агентов для сравнения и рейтинга.
	ActiveRefs(ctx context.Context) ([]report.AgentRef, error)
}

// AgentListFilters — фильтры списка агентов.
type AgentListFilters struct {
	// Search — подстрока имени, фамилии, подразделения или должности
	Search   *string
	IsActive *bool
}

type agentRepo struct {
	db DBTX
}

// NewAgentRepository создаёт репозиторий агентов.
func NewAgentRepository(db DBTX) AgentRepository {
	return &agentRepo{db: db}
}

const agentColumns = `id, first_name, last_name, area, position, hire_date,
	email, phone, is_active, created_at, updated_at`

func scanAgent(row pgx.Row) (*model.Agent, error) {
	a := &model.Agent{}
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Area, &a.Position, &a.HireDate,
		&a.Email, &a.Phone, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *agentRepo) Create(ctx context.Context, a *model.Agent) error {
	query := `
		INSERT INTO agents (first_name, last_name, area, position, hire_date,
			email, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.FirstName, a.LastName, a.Area, a.Position, a.HireDate,
		a.Email, a.Phone, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания агента: %w", err)
	}
	return nil
}

func (r *agentRepo) GetByID(ctx context.Context, id int64) (*model.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	a, err := scanAgent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения агента: %w", err)
	}
	return a, nil
}

func (r *agentRepo) List(ctx context.Context, filters AgentListFilters) ([]*model.Agent, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR area ILIKE $%d OR position ILIKE $%d)",
			argNum, argNum, argNum, argNum))
		args = append(args, "%"+*filters.Search+"%")
		argNum++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argNum))
		args = append(args, *filters.IsActive)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM agents %s ORDER BY first_name, last_name, id`, agentColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка агентов: %w", err)
	}
	defer rows.Close()

	result := []*model.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования агента: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *agentRepo) Update(ctx context.Context, a *model.Agent) error {
	query := `
		UPDATE agents
		SET first_name = $2, last_name = $3, area = $4, position = $5,
			hire_date = $6, email = $7, phone = $8, is_active = $9
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.FirstName, a.LastName, a.Area, a.Position,
		a.HireDate, a.Email, a.Phone, a.IsActive,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления агента: %w", err)
	}
	return nil
}

func (r *agentRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: у агента есть оценки", ErrReferenceViolation)
		}
		return fmt.Errorf("ошибка удаления агента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agentRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE is_active = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта активных агентов: %w", err)
	}
	return count, nil
}

func (r *agentRepo) ActiveRefs(ctx context.Context) ([]report.AgentRef, error) {
	query := `
		SELECT id, first_name, last_name
		FROM agents
		WHERE is_active = TRUE
		ORDER BY first_name, last_name, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных агентов: %w", err)
	}
	defer rows.Close()

	result := []report.AgentRef{}
	for rows.Next() {
		ref := report.AgentRef{Found: true}
		if err := rows.Scan(&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агента: %w", err)
		}
		ref.Name = report.AgentName(&ref.FirstName, &ref.LastName)
		result = append(result, ref)
	}
	return result, rows.Err()
}
