// Пакет model — доменные модели ScoreTeam.
package model

import "time"

// User — пользователь системы (администратор, оценщик или наблюдатель).
// Хранится в таблице users.
type User struct {
	// ID — идентификатор записи (BIGSERIAL)
	ID int64
	// Username — уникальное имя для входа
	Username string
	// Email — адрес электронной почты (уникален, может отсутствовать)
	Email *string
	// PasswordHash — bcrypt-хэш пароля, наружу не отдаётся
	PasswordHash string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// Role — каноническая роль (admin, evaluator, viewer)
	Role string
	// Phone — телефон (может отсутствовать)
	Phone *string
	// IsActive — может ли пользователь входить в систему
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// DisplayName возвращает "Имя Фамилия" или username, если имя не заполнено.
func (u *User) DisplayName() string {
	name := joinName(u.FirstName, u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
