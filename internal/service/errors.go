// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	// ErrUnauthenticated — токен отсутствует, недействителен или пользователь неактивен.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrInUse — ресурс используется оценками и не может быть удалён.
	ErrInUse = errors.New("ресурс используется и не может быть удалён")
	// ErrSelfDelete — попытка удалить собственную учётную запись.
	ErrSelfDelete = errors.New("нельзя удалить собственную учётную запись")
)

// FieldError — ошибка валидации одного поля.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError — ошибка валидации со списком полей.
// errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError создаёт ошибку валидации для одного поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add добавляет ошибку поля.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Error реализует error.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap позволяет сравнивать с ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// orNil возвращает nil, если ошибок полей нет.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
