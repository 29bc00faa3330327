package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoreType — шаблон оценки: именованное значение баллов со знаком.
// Хранится в таблице score_types. Изменение ScoreValue влияет на все
// существующие оценки этого типа при следующем чтении.
type ScoreType struct {
	ID          int64
	Name        string
	Description *string
	// ScoreValue — баллы, кратные 0.05, в диапазоне -1000..1000
	ScoreValue decimal.Decimal
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
