package model

import (
	"strings"
	"time"
)

// Agent — сотрудник, которого оценивают.
// Хранится в таблице agents.
type Agent struct {
	ID        int64
	FirstName string
	LastName  string
	// Area — подразделение
	Area string
	// Position — должность
	Position string
	// HireDate — дата приёма на работу (без времени)
	HireDate time.Time
	Email    *string
	Phone    *string
	// IsActive — участвует ли агент в сравнении и рейтинге
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName возвращает "Имя Фамилия" без крайних пробелов.
func (a *Agent) FullName() string {
	return joinName(a.FirstName, a.LastName)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
