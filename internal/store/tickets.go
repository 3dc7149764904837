package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"helpdesk-transfer/internal/transfer/model"
	"helpdesk-transfer/internal/transfer/service"
)

// PersistTickets записывает пачку тикетов.
func (s *Store) PersistTickets(ctx context.Context, tenant uuid.UUID, batch []model.TicketDraft) (model.BatchOutcome, error) {
	return persistBatch(ctx, s.pool, batch,
		func(t model.TicketDraft) int { return t.RowNumber },
		func(ctx context.Context, tx pgx.Tx, t model.TicketDraft) error {
			return s.persistTicket(ctx, tx, tenant, t)
		})
}

func (s *Store) persistTicket(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, t model.TicketDraft) error {
	customerID, err := findCustomer(ctx, tx, tenant, t)
	if err != nil {
		return err
	}

	typeID, err := findTicketType(ctx, tx, tenant, t)
	if err != nil {
		return err
	}

	dyn := t.DynamicFields
	dueDate := t.DueDate
	if typeID != nil {
		defs, err := s.fieldDefinitionsTx(ctx, tx, tenant, *typeID)
		if err != nil {
			return fmt.Errorf("field definitions: %w", err)
		}
		var due string
		var problems []string
		dyn, due, problems = service.CoerceDynamicFields(dyn, defs)
		if len(problems) > 0 {
			return rowError(strings.Join(problems, "; "))
		}
		if dueDate == "" {
			dueDate = due
		}
	}
	if dyn == nil {
		dyn = map[string]any{}
	}

	var due *time.Time
	if dueDate != "" {
		if v, ok := service.ParseDateValue(dueDate); ok {
			due = &v
		}
	}

	status, err := resolveStatus(ctx, tx, tenant, t.Status)
	if err != nil {
		return err
	}
	var systemStatus *string
	var customStatusID *int64
	if status.Kind == model.StatusKindCustom {
		customStatusID = &status.CustomID
	} else {
		v := string(status.System)
		systemStatus = &v
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (
			tenant_id, title, description, status, custom_status_id,
			due_date, ticket_type_id, customer_id, dynamic_fields
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tenant, t.Title, t.Description, systemStatus, customStatusID,
		due, typeID, customerID, dyn)
	return err
}

// findCustomer: id, затем внешний номер, затем e-post.
func findCustomer(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, t model.TicketDraft) (int64, error) {
	type lookup struct {
		query string
		arg   any
		label string
	}
	var lookups []lookup
	if t.CustomerID != nil {
		lookups = append(lookups, lookup{`SELECT id FROM customers WHERE tenant_id = $1 AND id = $2`, *t.CustomerID, fmt.Sprintf("id %d", *t.CustomerID)})
	}
	if t.CustomerExternalID != "" {
		lookups = append(lookups, lookup{`SELECT id FROM customers WHERE tenant_id = $1 AND external_id = $2 ORDER BY id LIMIT 1`, t.CustomerExternalID, "kundnummer " + t.CustomerExternalID})
	}
	if t.CustomerEmail != "" {
		lookups = append(lookups, lookup{`SELECT id FROM customers WHERE tenant_id = $1 AND lower(email) = lower($2)`, strings.TrimSpace(t.CustomerEmail), "e-post " + t.CustomerEmail})
	}
	if len(lookups) == 0 {
		return 0, rowError("Ingen kund angiven (customerId, customerEmail eller kundnummer saknas)")
	}

	var tried []string
	for _, l := range lookups {
		var id int64
		err := tx.QueryRow(ctx, l.query, tenant, l.arg).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
		tried = append(tried, l.label)
	}
	return 0, rowError("kunden hittades inte (" + strings.Join(tried, ", ") + ")")
}

// findTicketType возвращает nil, если тип не указан.
func findTicketType(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, t model.TicketDraft) (*int64, error) {
	var id int64
	var err error
	switch {
	case t.TicketTypeID != nil:
		err = tx.QueryRow(ctx, `SELECT id FROM ticket_types WHERE tenant_id = $1 AND id = $2`, tenant, *t.TicketTypeID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rowError(fmt.Sprintf("ärendetyp %d hittades inte", *t.TicketTypeID))
		}
	case t.TicketTypeName != "":
		err = tx.QueryRow(ctx, `SELECT id FROM ticket_types WHERE tenant_id = $1 AND lower(name) = lower($2)`, tenant, t.TicketTypeName).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rowError(fmt.Sprintf("ärendetyp %q hittades inte", t.TicketTypeName))
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// resolveStatus: пусто даёт OPEN, системный берётся как есть, иначе ищем
// пользовательский статус по имени.
func resolveStatus(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, raw string) (model.Status, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.SystemStatusOf(model.StatusOpen), nil
	}
	if norm := service.NormalizeStatus(s); model.IsSystemStatus(norm) {
		return model.SystemStatusOf(model.SystemStatus(norm)), nil
	}

	var id int64
	var name string
	err := tx.QueryRow(ctx,
		`SELECT id, name FROM custom_statuses WHERE tenant_id = $1 AND lower(name) = lower($2)`,
		tenant, s,
	).Scan(&id, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Status{}, rowError(fmt.Sprintf("status %q finns inte", s))
	}
	if err != nil {
		return model.Status{}, err
	}
	return model.CustomStatusOf(id, name), nil
}
