package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/config"
	"helpdesk-transfer/internal/middleware"
	"helpdesk-transfer/internal/store"
	"helpdesk-transfer/internal/transfer/model"
)

type fakeStore struct {
	defs      map[int64][]model.FieldDefinition
	customers []model.CustomerDraft
	tickets   []model.TicketDraft
	opts      model.ImportOptions
	records   []model.CustomerRecord
}

func (f *fakeStore) FieldDefinitions(ctx context.Context, tenant uuid.UUID, typeID int64) ([]model.FieldDefinition, error) {
	defs, ok := f.defs[typeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return defs, nil
}

func (f *fakeStore) PersistCustomers(ctx context.Context, tenant uuid.UUID, opts model.ImportOptions, batch []model.CustomerDraft) (model.BatchOutcome, error) {
	f.opts = opts
	f.customers = append(f.customers, batch...)
	return model.BatchOutcome{Success: len(batch)}, nil
}

func (f *fakeStore) PersistTickets(ctx context.Context, tenant uuid.UUID, batch []model.TicketDraft) (model.BatchOutcome, error) {
	f.tickets = append(f.tickets, batch...)
	return model.BatchOutcome{Success: len(batch)}, nil
}

func (f *fakeStore) ListCustomers(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.CustomerRecord, error) {
	return f.records, nil
}

func (f *fakeStore) ListTickets(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.TicketRecord, error) {
	return nil, nil
}

var testTenant = uuid.MustParse("7f1d2c3b-0000-4000-8000-000000000001")

func newTestHandler(st *fakeStore) *Handler {
	cfg := config.Config{ImportBatchSize: 2, ImportMaxRows: 100, MaxUploadMB: 1}
	return New(cfg, st, zerolog.Nop())
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(middleware.TenantHeader, testTenant.String())
	rec := httptest.NewRecorder()
	middleware.Tenant()(h).ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, url, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const customersCSV = "Namn;Efternamn;E-post\nAnna;Berg;anna@example.se\nBo;Ek;bo@example.se\nCilla;Ås;cilla@example.se\n"

func TestPreview(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	req := multipartRequest(t, "/imports/preview", "kunder.csv", customersCSV, map[string]string{"entity": "customers"})
	rec := serve(h.Preview, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp previewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.FileType != "csv" || resp.RowCount != 3 || len(resp.Sample) != 3 {
		t.Errorf("resp = %+v", resp)
	}
	want := model.FieldMapping{"Namn": "firstName", "Efternamn": "lastName", "E-post": "email"}
	if len(resp.Mapping) != len(want) {
		t.Errorf("mapping = %v", resp.Mapping)
	}
	for k, v := range want {
		if resp.Mapping[k] != v {
			t.Errorf("mapping[%q] = %q, want %q", k, resp.Mapping[k], v)
		}
	}
	if !resp.Validation.Valid {
		t.Errorf("validation = %+v", resp.Validation)
	}
}

func TestPreviewErrors(t *testing.T) {
	st := &fakeStore{defs: map[int64][]model.FieldDefinition{1: {{Name: "Skida"}}}}
	h := newTestHandler(st)
	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		status   int
	}{
		{"unsupported file", "bild.png", map[string]string{"entity": "customers"}, http.StatusBadRequest},
		{"unknown entity", "kunder.csv", map[string]string{"entity": "orders"}, http.StatusBadRequest},
		{"unknown ticket type", "kunder.csv", map[string]string{"entity": "tickets", "ticketTypeId": "9"}, http.StatusNotFound},
		{"bad ticket type", "kunder.csv", map[string]string{"entity": "tickets", "ticketTypeId": "x"}, http.StatusBadRequest},
		{"known ticket type", "kunder.csv", map[string]string{"entity": "tickets", "ticketTypeId": "1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.Preview, multipartRequest(t, "/imports/preview", tt.filename, customersCSV, tt.fields))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestPreviewTooManyRows(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	h.cfg.ImportMaxRows = 2
	rec := serve(h.Preview, multipartRequest(t, "/imports/preview", "kunder.csv", customersCSV, map[string]string{"entity": "customers"}))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "för många rader") {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRemap(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	body := `{"entity":"customers","headers":["Namn","E-post","Telefon"],"mapping":{"Namn":"firstName","E-post":""}}`
	rec := serve(h.Remap, httptest.NewRequest(http.MethodPost, "/imports/remap", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp remapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Added["E-post"] != "email" || resp.Added["Telefon"] != "phoneNumber" || len(resp.Added) != 2 {
		t.Errorf("added = %v", resp.Added)
	}
	if resp.Mapping["Namn"] != "firstName" || resp.Mapping["E-post"] != "email" {
		t.Errorf("mapping = %v", resp.Mapping)
	}
}

func TestImportCustomers(t *testing.T) {
	st := &fakeStore{}
	h := newTestHandler(st)
	fields := map[string]string{
		"entity":         "customers",
		"mapping":        `{"Namn":"firstName","E-post":"email","Efternamn":""}`,
		"updateExisting": "true",
	}
	rec := serve(h.Import, multipartRequest(t, "/imports", "kunder.csv", customersCSV, fields))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || resp.Success != 3 || resp.Failed != 0 {
		t.Errorf("result = %+v", resp.ImportResult)
	}
	if len(st.customers) != 3 || st.customers[2].Email != "cilla@example.se" || st.customers[2].LastName != "" {
		t.Errorf("persisted = %+v", st.customers)
	}
	if st.customers[0].RowNumber != 1 || st.customers[2].RowNumber != 3 {
		t.Errorf("row numbers = %d, %d", st.customers[0].RowNumber, st.customers[2].RowNumber)
	}
	if !st.opts.UpdateExisting || st.opts.SkipExisting {
		t.Errorf("opts = %+v", st.opts)
	}
}

func TestImportTicketsAutoMappingAndRejection(t *testing.T) {
	st := &fakeStore{}
	h := newTestHandler(st)

	ticketsCSV := "Titel,Kundens e-post,Status\nSlipning,anna@example.se,ny\nVallning,,klar\n"
	rec := serve(h.Import, multipartRequest(t, "/imports", "arenden.csv", ticketsCSV, map[string]string{"entity": "tickets"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success != 1 || resp.Failed != 1 {
		t.Errorf("result = %+v", resp.ImportResult)
	}
	if len(resp.ErrorGroups["missing"]) != 1 {
		t.Errorf("error groups = %v", resp.ErrorGroups)
	}
	if len(st.tickets) != 1 || st.tickets[0].Status != "OPEN" {
		t.Errorf("persisted = %+v", st.tickets)
	}

	// без customerEmail в маппинге: структурная ошибка
	rec = serve(h.Import, multipartRequest(t, "/imports", "arenden.csv", ticketsCSV,
		map[string]string{"entity": "tickets", "mapping": `{"Titel":"title"}`}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp = importResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Failed != 2 {
		t.Errorf("rejected result = %+v", resp.ImportResult)
	}
}

func TestImportTicketsIgnoresCustomerPolicies(t *testing.T) {
	st := &fakeStore{}
	h := newTestHandler(st)
	ticketsCSV := "Titel,Kundens e-post\nSlipning,anna@example.se\nSlipning,anna@example.se\n"
	fields := map[string]string{"entity": "tickets", "skipExisting": "true", "updateExisting": "true"}
	rec := serve(h.Import, multipartRequest(t, "/imports", "arenden.csv", ticketsCSV, fields))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(st.tickets) != 2 || st.opts != (model.ImportOptions{}) {
		t.Errorf("tickets = %d, customer opts = %+v", len(st.tickets), st.opts)
	}
}

func TestExportCustomersCSV(t *testing.T) {
	st := &fakeStore{records: []model.CustomerRecord{
		{ID: 1, FirstName: "Anna", Email: "anna@example.se", DynamicFields: map[string]any{"Klubb": "IFK"}},
	}}
	h := newTestHandler(st)
	rec := serve(h.Export, httptest.NewRequest(http.MethodGet, "/exports?entity=customers&format=csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "customers-") || !strings.HasSuffix(cd, `.csv"`) {
		t.Errorf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimPrefix(rec.Body.String(), "\ufeff"), "\n")
	if !strings.HasPrefix(lines[0], "id,firstName,") || !strings.HasSuffix(lines[0], ",custom_Klubb") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,Anna,") || !strings.HasSuffix(lines[1], ",IFK") {
		t.Errorf("record = %q", lines[1])
	}
}

func TestExportBadFormat(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	rec := serve(h.Export, httptest.NewRequest(http.MethodGet, "/exports?entity=tickets&format=pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}
