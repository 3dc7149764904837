package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"helpdesk-transfer/internal/transfer/model"
)

// ListCustomers: все клиенты арендатора. withRelations подтягивает тикеты.
func (s *Store) ListCustomers(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.CustomerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, tenant_id, first_name, last_name, email, phone_number, address,
			postal_code, city, country, COALESCE(external_id, ''), date_of_birth,
			newsletter, loyal, dynamic_fields, created_at
		FROM customers
		WHERE tenant_id = $1
		ORDER BY id ASC
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []model.CustomerRecord
	index := map[int64]int{}
	for rows.Next() {
		var c model.CustomerRecord
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber, &c.Address,
			&c.PostalCode, &c.City, &c.Country, &c.ExternalID, &c.DateOfBirth,
			&c.Newsletter, &c.Loyal, &c.DynamicFields, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if withRelations {
			c.Tickets = []model.TicketRef{}
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	if !withRelations || len(out) == 0 {
		return out, nil
	}

	refs, err := s.pool.Query(ctx, `SELECT id, customer_id FROM tickets WHERE tenant_id = $1 ORDER BY id`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list customer tickets: %w", err)
	}
	defer refs.Close()
	for refs.Next() {
		var ticketID, customerID int64
		if err := refs.Scan(&ticketID, &customerID); err != nil {
			return nil, fmt.Errorf("scan customer ticket: %w", err)
		}
		if i, ok := index[customerID]; ok {
			out[i].Tickets = append(out[i].Tickets, model.TicketRef{ID: ticketID})
		}
	}
	if err := refs.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer tickets: %w", err)
	}
	return out, nil
}

// ListTickets: все тикеты арендатора. withRelations подтягивает сообщения
// и исполнителя.
func (s *Store) ListTickets(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.TicketRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			t.id, t.tenant_id, t.title, t.description, t.status,
			cs.id, cs.name, t.due_date, COALESCE(tt.name, ''),
			c.id, c.email, TRIM(c.first_name || ' ' || c.last_name),
			t.dynamic_fields, t.created_at, COALESCE(u.email, '')
		FROM tickets t
		JOIN customers c ON c.id = t.customer_id
		LEFT JOIN custom_statuses cs ON cs.id = t.custom_status_id
		LEFT JOIN ticket_types tt ON tt.id = t.ticket_type_id
		LEFT JOIN users u ON u.id = t.assigned_user_id
		WHERE t.tenant_id = $1
		ORDER BY t.id ASC
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []model.TicketRecord
	index := map[int64]int{}
	for rows.Next() {
		var (
			t          model.TicketRecord
			status     *string
			customID   *int64
			customName *string
			assigned   string
		)
		if err := rows.Scan(
			&t.ID, &t.TenantID, &t.Title, &t.Description, &status,
			&customID, &customName, &t.DueDate, &t.TicketTypeName,
			&t.CustomerID, &t.CustomerEmail, &t.CustomerName,
			&t.DynamicFields, &t.CreatedAt, &assigned,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		switch {
		case customID != nil && customName != nil:
			t.Status = model.CustomStatusOf(*customID, *customName)
		case status != nil:
			t.Status = model.SystemStatusOf(model.SystemStatus(*status))
		default:
			t.Status = model.SystemStatusOf(model.StatusOpen)
		}
		if withRelations {
			t.AssignedUserEmail = assigned
			t.Messages = []model.MessageRef{}
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	if !withRelations || len(out) == 0 {
		return out, nil
	}

	msgs, err := s.pool.Query(ctx, `
		SELECT m.id, m.ticket_id, m.created_at
		FROM ticket_messages m
		JOIN tickets t ON t.id = m.ticket_id
		WHERE t.tenant_id = $1
		ORDER BY m.id
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list ticket messages: %w", err)
	}
	defer msgs.Close()
	for msgs.Next() {
		var (
			id, ticketID int64
			at           time.Time
		)
		if err := msgs.Scan(&id, &ticketID, &at); err != nil {
			return nil, fmt.Errorf("scan ticket message: %w", err)
		}
		if i, ok := index[ticketID]; ok {
			out[i].Messages = append(out[i].Messages, model.MessageRef{ID: id, CreatedAt: at})
		}
	}
	if err := msgs.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket messages: %w", err)
	}
	return out, nil
}
