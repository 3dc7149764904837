package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/transfer/model"
)

func setupStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	if err := Migrate(ctx, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return New(pool, time.Minute, zerolog.Nop()), pool
}

func boolPtr(b bool) *bool { return &b }

func TestPersistCustomersPolicies(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	first := []model.CustomerDraft{
		{RowNumber: 1, FirstName: "Anna", Email: "anna@example.se", DateOfBirth: "1990-12-24T00:00:00.000Z", Newsletter: boolPtr(true)},
		{RowNumber: 2, FirstName: "Bo", Email: "bo@example.se", DateOfBirth: "okänd"},
	}
	out, err := s.PersistCustomers(ctx, tenant, model.ImportOptions{}, first)
	if err != nil {
		t.Fatal(err)
	}
	if out.Success != 1 || out.Failed != 1 || !strings.HasPrefix(out.Errors[0], "Rad 2: ogiltigt födelsedatum") {
		t.Fatalf("outcome = %+v", out)
	}

	dup := []model.CustomerDraft{{RowNumber: 1, FirstName: "Annika", Email: "ANNA@example.se"}}
	out, err = s.PersistCustomers(ctx, tenant, model.ImportOptions{}, dup)
	if err != nil {
		t.Fatal(err)
	}
	if out.Failed != 1 || !strings.Contains(out.Errors[0], "finns redan") {
		t.Fatalf("duplicate outcome = %+v", out)
	}

	out, _ = s.PersistCustomers(ctx, tenant, model.ImportOptions{SkipExisting: true}, dup)
	if out.Success != 1 {
		t.Fatalf("skip outcome = %+v", out)
	}
	out, _ = s.PersistCustomers(ctx, tenant, model.ImportOptions{UpdateExisting: true}, dup)
	if out.Success != 1 {
		t.Fatalf("update outcome = %+v", out)
	}

	list, err := s.ListCustomers(ctx, tenant, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].FirstName != "Annika" || !list[0].Newsletter {
		t.Fatalf("customers = %+v", list)
	}
	if list[0].Tickets == nil || len(list[0].Tickets) != 0 {
		t.Errorf("tickets relation = %v", list[0].Tickets)
	}
}

func TestPersistTickets(t *testing.T) {
	s, pool := setupStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	if _, err := s.PersistCustomers(ctx, tenant, model.ImportOptions{}, []model.CustomerDraft{
		{RowNumber: 1, Email: "kund@example.se", ExternalID: "K-17"},
	}); err != nil {
		t.Fatal(err)
	}
	var typeID int64
	if err := pool.QueryRow(ctx, `INSERT INTO ticket_types (tenant_id, name) VALUES ($1, 'Service') RETURNING id`, tenant).Scan(&typeID); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO ticket_type_fields (ticket_type_id, name, field_type, is_required, position)
		VALUES ($1, 'Leverans', 'DUE_DATE', FALSE, 1), ($1, 'Antal', 'NUMBER', TRUE, 2)
	`, typeID); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO custom_statuses (tenant_id, name) VALUES ($1, 'Väntar på delar')`, tenant); err != nil {
		t.Fatal(err)
	}

	batch := []model.TicketDraft{
		{RowNumber: 1, Title: "Slipning", CustomerExternalID: "K-17", TicketTypeName: "service",
			DynamicFields: map[string]any{"Leverans": "01.06.2025", "Antal": "2"}},
		{RowNumber: 2, Title: "Vallning", CustomerEmail: "KUND@example.se", Status: "Väntar på delar", DynamicFields: map[string]any{}},
		{RowNumber: 3, Title: "Okänd", CustomerEmail: "ingen@example.se", DynamicFields: map[string]any{}},
		{RowNumber: 4, Title: "Saknar antal", CustomerEmail: "kund@example.se", TicketTypeName: "Service", DynamicFields: map[string]any{}},
		{RowNumber: 5, Title: "Fel status", CustomerEmail: "kund@example.se", Status: "PAUSAD", DynamicFields: map[string]any{}},
	}
	out, err := s.PersistTickets(ctx, tenant, batch)
	if err != nil {
		t.Fatal(err)
	}
	if out.Success != 2 || out.Failed != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	for i, prefix := range []string{"Rad 3: kunden hittades inte", "Rad 4: obligatoriskt fält", "Rad 5: status"} {
		if !strings.HasPrefix(out.Errors[i], prefix) {
			t.Errorf("error %d = %q, want prefix %q", i, out.Errors[i], prefix)
		}
	}

	list, err := s.ListTickets(ctx, tenant, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("tickets = %+v", list)
	}
	if list[0].Status.System != model.StatusOpen || list[0].TicketTypeName != "Service" {
		t.Errorf("first ticket = %+v", list[0])
	}
	if list[0].DueDate == nil || !list[0].DueDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due date = %v", list[0].DueDate)
	}
	if list[0].DynamicFields["Antal"] != float64(2) {
		t.Errorf("dynamic = %v", list[0].DynamicFields)
	}
	if list[1].Status.Kind != model.StatusKindCustom || list[1].Status.String() != "Väntar på delar" {
		t.Errorf("second status = %+v", list[1].Status)
	}
}

// Пул на одно соединение: поля типа при холодном кэше читаются в той же
// транзакции, иначе запись пачки зависла бы на втором Acquire.
func TestPersistTicketsSingleConnection(t *testing.T) {
	_, setupPool := setupStore(t)
	ctx := context.Background()

	cfg, err := pgxpool.ParseConfig(os.Getenv("TEST_DATABASE_URL"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	s := New(pool, time.Minute, zerolog.Nop())

	tenant := uuid.New()
	if _, err := setupPool.Exec(ctx, `INSERT INTO customers (tenant_id, email) VALUES ($1, 'en@example.se')`, tenant); err != nil {
		t.Fatal(err)
	}
	var typeID int64
	if err := setupPool.QueryRow(ctx, `INSERT INTO ticket_types (tenant_id, name) VALUES ($1, 'Service') RETURNING id`, tenant).Scan(&typeID); err != nil {
		t.Fatal(err)
	}
	if _, err := setupPool.Exec(ctx, `
		INSERT INTO ticket_type_fields (ticket_type_id, name, field_type, is_required, position)
		VALUES ($1, 'Antal', 'NUMBER', FALSE, 1)
	`, typeID); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := s.PersistTickets(ctx, tenant, []model.TicketDraft{
		{RowNumber: 1, Title: "Slipning", CustomerEmail: "en@example.se", TicketTypeID: &typeID,
			DynamicFields: map[string]any{"Antal": "3"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Success != 1 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestFieldDefinitionsUnknownType(t *testing.T) {
	s, _ := setupStore(t)
	if _, err := s.FieldDefinitions(context.Background(), uuid.New(), 999999); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
