// Пакет report — движок агрегации оценок для дашборда.
// Работает только с уже выбранными строками и не обращается к БД:
// группирует факты оценок по агентам, месяцам и типам, суммирует баллы в decimal.
//
// Стоимость факта не хранится в самой оценке, а берётся из текущего
// значения типа оценки в момент чтения (см. ValueResolvedAtRead).
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownName — имя для агента или типа, чья связь не найдена.
const UnknownName = "Unknown"

// ValueResolvedAtRead фиксирует политику оценки фактов: баллы факта равны
// текущему score_value типа на момент чтения. Изменение типа оценки
// пересчитывает все исторические суммы при следующем запросе.
const ValueResolvedAtRead = true

// RawJoinRow — одна строка выборки scores LEFT JOIN agents, score_types, users.
// Поля связанных сущностей равны nil, если соответствующая запись не найдена.
type RawJoinRow struct {
	ScoreID     int64
	AgentID     int64
	ScoreTypeID int64
	AssignedBy  *int64
	ScoreDate   time.Time
	Comment     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AgentFirstName *string
	AgentLastName  *string
	AgentIsActive  *bool

	ScoreTypeName  *string
	ScoreTypeValue decimal.NullDecimal

	AssignedByUsername  *string
	AssignedByFirstName *string
	AssignedByLastName  *string
}

// AgentRef — агент в составе развёрнутой оценки.
type AgentRef struct {
	ID        int64
	Name      string
	FirstName string
	LastName  string
	Found     bool
}

// ScoreTypeRef — тип оценки в составе развёрнутой оценки.
type ScoreTypeRef struct {
	ID    int64
	Name  string
	Value decimal.Decimal
	Found bool
}

// UserRef — пользователь, назначивший оценку.
type UserRef struct {
	ID       int64
	Username string
	Name     string
}

// ExpandedScore — оценка с вложенными агентом, типом и автором.
type ExpandedScore struct {
	ID         int64
	ScoreDate  time.Time
	Comment    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Agent      AgentRef
	ScoreType  ScoreTypeRef
	AssignedBy *UserRef
}

// Expand преобразует плоскую строку JOIN-выборки во вложенную структуру.
func Expand(row RawJoinRow) ExpandedScore {
	es := ExpandedScore{
		ID:        row.ScoreID,
		ScoreDate: row.ScoreDate,
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Agent: AgentRef{
			ID:        row.AgentID,
			Name:      AgentName(row.AgentFirstName, row.AgentLastName),
			FirstName: deref(row.AgentFirstName),
			LastName:  deref(row.AgentLastName),
			Found:     row.AgentFirstName != nil || row.AgentLastName != nil,
		},
		ScoreType: ScoreTypeRef{
			ID:    row.ScoreTypeID,
			Name:  typeName(row.ScoreTypeName),
			Value: row.value(),
			Found: row.ScoreTypeName != nil,
		},
	}

	if row.AssignedBy != nil {
		es.AssignedBy = &UserRef{
			ID:       *row.AssignedBy,
			Username: deref(row.AssignedByUsername),
			Name:     userName(row.AssignedByFirstName, row.AssignedByLastName, row.AssignedByUsername),
		}
	}

	return es
}

// ExpandAll применяет Expand к каждой строке с сохранением порядка.
func ExpandAll(rows []RawJoinRow) []ExpandedScore {
	result := make([]ExpandedScore, len(rows))
	for i, r := range rows {
		result[i] = Expand(r)
	}
	return result
}

// AgentName возвращает "Имя Фамилия" без крайних пробелов.
// Если агент не найден или имя пустое — "Unknown".
func AgentName(first, last *string) string {
	if first == nil && last == nil {
		return UnknownName
	}
	name := strings.TrimSpace(deref(first) + " " + deref(last))
	if name == "" {
		return UnknownName
	}
	return name
}

// value — баллы факта; отсутствующий тип или NULL считаются нулём.
func (r RawJoinRow) value() decimal.Decimal {
	if !r.ScoreTypeValue.Valid {
		return decimal.Zero
	}
	return r.ScoreTypeValue.Decimal
}

func typeName(name *string) string {
	if name == nil || strings.TrimSpace(*name) == "" {
		return UnknownName
	}
	return *name
}

func userName(first, last, username *string) string {
	name := strings.TrimSpace(deref(first) + " " + deref(last))
	if name != "" {
		return name
	}
	if username != nil && *username != "" {
		return *username
	}
	return UnknownName
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
