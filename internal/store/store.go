// Package store: хранение клиентов и тикетов в PostgreSQL.
// Пачка пишется в одной транзакции, каждая строка под своим SAVEPOINT:
// ошибка строки откатывает только её.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/cache"
	"helpdesk-transfer/internal/transfer/model"
)

var ErrNotFound = errors.New("not found")

type fieldDefsKey struct {
	tenant uuid.UUID
	typeID int64
}

type Store struct {
	pool      *pgxpool.Pool
	fieldDefs *cache.TTL[fieldDefsKey, []model.FieldDefinition]
	log       zerolog.Logger
}

// New. fieldDefsTTL задаёт, сколько живут закэшированные поля типов тикетов.
func New(pool *pgxpool.Pool, fieldDefsTTL time.Duration, log zerolog.Logger) *Store {
	s := &Store{pool: pool, log: log}
	s.fieldDefs = cache.New(fieldDefsTTL, nil, fieldDefinitionsLoader(pool))
	return s
}

// querier: общее у pgxpool.Pool и pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FieldDefinitions: поля шаблона типа тикета (из кэша).
func (s *Store) FieldDefinitions(ctx context.Context, tenant uuid.UUID, typeID int64) ([]model.FieldDefinition, error) {
	return s.fieldDefs.Get(ctx, fieldDefsKey{tenant: tenant, typeID: typeID})
}

// RefreshFieldDefinitions обновляет устаревшие записи кэша; для фонового тикера.
func (s *Store) RefreshFieldDefinitions(ctx context.Context) int {
	return s.fieldDefs.RefreshIfStale(ctx)
}

// fieldDefinitionsTx: то же внутри транзакции пачки. Промах кэша читается
// через tx, второе соединение из пула не берётся.
func (s *Store) fieldDefinitionsTx(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, typeID int64) ([]model.FieldDefinition, error) {
	return s.fieldDefs.GetWith(ctx, fieldDefsKey{tenant: tenant, typeID: typeID}, fieldDefinitionsLoader(tx))
}

func fieldDefinitionsLoader(q querier) cache.Loader[fieldDefsKey, []model.FieldDefinition] {
	return func(ctx context.Context, key fieldDefsKey) ([]model.FieldDefinition, error) {
		return loadFieldDefinitions(ctx, q, key)
	}
}

func loadFieldDefinitions(ctx context.Context, q querier, key fieldDefsKey) ([]model.FieldDefinition, error) {
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ticket_types WHERE id = $1 AND tenant_id = $2)`,
		key.typeID, key.tenant,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check ticket type %d: %w", key.typeID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := q.Query(ctx, `
		SELECT name, field_type, is_required
		FROM ticket_type_fields
		WHERE ticket_type_id = $1
		ORDER BY position, id
	`, key.typeID)
	if err != nil {
		return nil, fmt.Errorf("list ticket type fields: %w", err)
	}
	defer rows.Close()

	defs := make([]model.FieldDefinition, 0, 8)
	for rows.Next() {
		var d model.FieldDefinition
		var ft string
		if err := rows.Scan(&d.Name, &ft, &d.IsRequired); err != nil {
			return nil, fmt.Errorf("scan ticket type field: %w", err)
		}
		d.FieldType = model.FieldType(ft)
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket type fields: %w", err)
	}
	return defs, nil
}

// rowFunc обрабатывает одну строку внутри транзакции пачки.
// Ошибка: это ошибка строки; сообщение уходит пользователю как есть.
type rowFunc[T any] func(ctx context.Context, tx pgx.Tx, item T) error

// persistBatch: одна транзакция, SAVEPOINT на строку. Ошибка возвращается,
// только если не удалось начать или зафиксировать транзакцию.
func persistBatch[T any](ctx context.Context, pool *pgxpool.Pool, batch []T, rowNumber func(T) int, fn rowFunc[T]) (model.BatchOutcome, error) {
	out := model.BatchOutcome{Errors: []string{}}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range batch {
		if _, err := tx.Exec(ctx, "SAVEPOINT import_row"); err != nil {
			return model.BatchOutcome{}, fmt.Errorf("savepoint: %w", err)
		}
		if err := fn(ctx, tx, item); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT import_row"); rbErr != nil {
				return model.BatchOutcome{}, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			out.Failed++
			out.Errors = append(out.Errors, model.RowError{RowNumber: rowNumber(item), Message: rowMessage(err)}.Error())
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT import_row"); err != nil {
			return model.BatchOutcome{}, fmt.Errorf("release savepoint: %w", err)
		}
		out.Success++
	}

	if err := tx.Commit(ctx); err != nil {
		return model.BatchOutcome{}, fmt.Errorf("commit batch: %w", err)
	}
	return out, nil
}

// rowError: ошибка строки, понятная пользователю.
type rowError string

func (e rowError) Error() string { return string(e) }

func rowMessage(err error) string {
	var re rowError
	if errors.As(err, &re) {
		return string(re)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "posten finns redan (" + pgErr.ConstraintName + ")"
		case "23503":
			return "databasfel: ogiltig referens (" + pgErr.ConstraintName + ")"
		}
		return "databasfel: " + pgErr.Message
	}
	return "databasfel: " + err.Error()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
