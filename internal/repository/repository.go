// Пакет repository — хранение пользователей, агентов, типов оценок и
// оценок ScoreTeam в PostgreSQL. Чистый SQL через pgx.
//
// Ошибки PostgreSQL переводятся в сентинелы пакета:
// 23505 (unique_violation) → ErrConflict,
// 23503 (foreign_key_violation) → ErrReferenceViolation.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound — строка не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — нарушено ограничение уникальности (username, email, имя типа).
	ErrConflict = errors.New("запись уже существует")
	// ErrReferenceViolation — оценка ссылается на несуществующего агента
	// или тип, либо удаляемая строка используется в оценках.
	ErrReferenceViolation = errors.New("нарушение ссылочной целостности")
)

// DBTX — общее подмножество *pgxpool.Pool и pgx.Tx.
// Репозиторий, созданный поверх pgx.Tx, работает внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner открывает транзакции на пуле.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn в транзакции READ COMMITTED.
// Ошибка fn откатывает транзакцию и возвращается без обёртки.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// pgError извлекает ошибку сервера PostgreSQL с указанным кодом.
func pgError(err error, code string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return nil, false
	}
	return pgErr, true
}

func isUniqueViolation(err error) bool {
	_, ok := pgError(err, pgerrcode.UniqueViolation)
	return ok
}

func isForeignKeyViolation(err error) bool {
	_, ok := pgError(err, pgerrcode.ForeignKeyViolation)
	return ok
}

// constraintName — имя нарушенного ограничения (для уточнения сообщения).
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

