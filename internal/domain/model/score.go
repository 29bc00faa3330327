package model

import "time"

// Score — факт оценки: тип оценки, назначенный агенту на дату.
// Хранится в таблице scores. Баллы в записи не хранятся.
type Score struct {
	ID          int64
	AgentID     int64
	ScoreTypeID int64
	// AssignedBy — кто назначил оценку; nil, если пользователь удалён
	AssignedBy *int64
	// ScoreDate — календарная дата оценки
	ScoreDate time.Time
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
