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

// PersistCustomers записывает пачку клиентов. Существующий клиент (по e-post)
// обновляется при UpdateExisting, пропускается при SkipExisting, иначе -
// ошибка строки.
func (s *Store) PersistCustomers(ctx context.Context, tenant uuid.UUID, opts model.ImportOptions, batch []model.CustomerDraft) (model.BatchOutcome, error) {
	return persistBatch(ctx, s.pool, batch,
		func(c model.CustomerDraft) int { return c.RowNumber },
		func(ctx context.Context, tx pgx.Tx, c model.CustomerDraft) error {
			return s.persistCustomer(ctx, tx, tenant, opts, c)
		})
}

func (s *Store) persistCustomer(ctx context.Context, tx pgx.Tx, tenant uuid.UUID, opts model.ImportOptions, c model.CustomerDraft) error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return rowError("e-post saknas")
	}

	var dob *time.Time
	if c.DateOfBirth != "" {
		t, ok := service.ParseDateValue(c.DateOfBirth)
		if !ok {
			return rowError(fmt.Sprintf("ogiltigt födelsedatum %q", c.DateOfBirth))
		}
		dob = &t
	}
	dyn := c.DynamicFields
	if dyn == nil {
		dyn = map[string]any{}
	}

	var existingID int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM customers WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		tenant, email,
	).Scan(&existingID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO customers (
				tenant_id, first_name, last_name, email, phone_number, address,
				postal_code, city, country, external_id, date_of_birth,
				newsletter, loyal, dynamic_fields
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, FALSE), COALESCE($13, FALSE), $14)
		`, tenant, c.FirstName, c.LastName, email, c.PhoneNumber, c.Address,
			c.PostalCode, c.City, c.Country, nullIfEmpty(c.ExternalID), dob,
			c.Newsletter, c.Loyal, dyn)
		return err
	case err != nil:
		return err
	}

	switch {
	case opts.UpdateExisting:
		// пустые значения из файла не затирают сохранённые
		_, err = tx.Exec(ctx, `
			UPDATE customers SET
				first_name     = COALESCE(NULLIF($2, ''), first_name),
				last_name      = COALESCE(NULLIF($3, ''), last_name),
				phone_number   = COALESCE(NULLIF($4, ''), phone_number),
				address        = COALESCE(NULLIF($5, ''), address),
				postal_code    = COALESCE(NULLIF($6, ''), postal_code),
				city           = COALESCE(NULLIF($7, ''), city),
				country        = COALESCE(NULLIF($8, ''), country),
				external_id    = COALESCE($9, external_id),
				date_of_birth  = COALESCE($10, date_of_birth),
				newsletter     = COALESCE($11, newsletter),
				loyal          = COALESCE($12, loyal),
				dynamic_fields = dynamic_fields || $13::jsonb,
				updated_at     = NOW()
			WHERE id = $1
		`, existingID, c.FirstName, c.LastName, c.PhoneNumber, c.Address,
			c.PostalCode, c.City, c.Country, nullIfEmpty(c.ExternalID), dob,
			c.Newsletter, c.Loyal, dyn)
		return err
	case opts.SkipExisting:
		s.log.Debug().Int("row", c.RowNumber).Int64("customer_id", existingID).Msg("existing customer skipped")
		return nil
	}
	return rowError(fmt.Sprintf("kund med e-post %s finns redan", email))
}
