package service

import (
	"time"

	"helpdesk-transfer/internal/transfer/model"
)

// CustomerFieldPrefix: префикс пользовательских полей клиента при выгрузке.
const CustomerFieldPrefix = "custom_"

// ExportTable: плоские записи с общим набором колонок.
type ExportTable struct {
	Columns []string
	Records []map[string]any
}

var (
	customerExportColumns = []string{
		"id", "firstName", "lastName", "email", "phoneNumber", "address", "postalCode",
		"city", "country", "externalId", "dateOfBirth", "newsletter", "loyal", "createdAt",
	}
	customerRelationColumns = []string{"ticketCount"}

	ticketExportColumns = []string{
		"id", "title", "description", "status", "dueDate", "ticketType",
		"customerId", "customerEmail", "customerName", "createdAt",
	}
	ticketRelationColumns = []string{"messageCount", "lastMessageDate", "assignedUserEmail"}
)

// FlattenCustomers. Пользовательские поля объединяются по всей выгрузке:
// колонка есть у всех записей, пусто: "".
func FlattenCustomers(customers []model.CustomerRecord, includeRelations bool) ExportTable {
	dyn := unionKeys(len(customers), func(i int) map[string]any { return customers[i].DynamicFields })

	cols := append([]string(nil), customerExportColumns...)
	if includeRelations {
		cols = append(cols, customerRelationColumns...)
	}
	for _, k := range dyn {
		cols = append(cols, CustomerFieldPrefix+k)
	}

	records := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		rec := map[string]any{
			"id":          c.ID,
			"firstName":   c.FirstName,
			"lastName":    c.LastName,
			"email":       c.Email,
			"phoneNumber": c.PhoneNumber,
			"address":     c.Address,
			"postalCode":  c.PostalCode,
			"city":        c.City,
			"country":     c.Country,
			"externalId":  c.ExternalID,
			"dateOfBirth": formatDay(c.DateOfBirth),
			"newsletter":  c.Newsletter,
			"loyal":       c.Loyal,
			"createdAt":   formatStamp(&c.CreatedAt),
		}
		if includeRelations {
			rec["ticketCount"] = len(c.Tickets)
		}
		for _, k := range dyn {
			rec[CustomerFieldPrefix+k] = valueOrEmpty(c.DynamicFields, k)
		}
		records = append(records, rec)
	}
	return ExportTable{Columns: cols, Records: records}
}

// FlattenTickets: то же для тикетов, префикс field_ (как при импорте).
func FlattenTickets(tickets []model.TicketRecord, includeRelations bool) ExportTable {
	dyn := unionKeys(len(tickets), func(i int) map[string]any { return tickets[i].DynamicFields })

	cols := append([]string(nil), ticketExportColumns...)
	if includeRelations {
		cols = append(cols, ticketRelationColumns...)
	}
	for _, k := range dyn {
		cols = append(cols, DynamicFieldPrefix+k)
	}

	records := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		rec := map[string]any{
			"id":            t.ID,
			"title":         t.Title,
			"description":   t.Description,
			"status":        t.Status.String(),
			"dueDate":       formatStamp(t.DueDate),
			"ticketType":    t.TicketTypeName,
			"customerId":    t.CustomerID,
			"customerEmail": t.CustomerEmail,
			"customerName":  t.CustomerName,
			"createdAt":     formatStamp(&t.CreatedAt),
		}
		if includeRelations {
			rec["messageCount"] = len(t.Messages)
			rec["lastMessageDate"] = lastMessageDate(t.Messages)
			rec["assignedUserEmail"] = t.AssignedUserEmail
		}
		for _, k := range dyn {
			rec[DynamicFieldPrefix+k] = valueOrEmpty(t.DynamicFields, k)
		}
		records = append(records, rec)
	}
	return ExportTable{Columns: cols, Records: records}
}

// unionKeys: ключи всех карт в порядке первого появления
// (внутри одной карты: по алфавиту).
func unionKeys(n int, get func(int) map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for i := 0; i < n; i++ {
		m := get(i)
		for _, k := range sortedKeys(m) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func valueOrEmpty(m map[string]any, k string) any {
	if v, ok := m[k]; ok && v != nil {
		return v
	}
	return ""
}

func lastMessageDate(msgs []model.MessageRef) string {
	var last *time.Time
	for i := range msgs {
		if last == nil || msgs[i].CreatedAt.After(*last) {
			last = &msgs[i].CreatedAt
		}
	}
	return formatStamp(last)
}

func formatStamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return FormatISO(*t)
}

func formatDay(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
