package service

import (
	"fmt"
	"strings"

	"helpdesk-transfer/internal/transfer/model"
)

// Validate: предварительная проверка перед преобразованием. Данные не меняет.
//
// Для тикетов требуется сопоставленный customerEmail, хотя слой хранения
// умеет находить клиента и по id, и по внешнему номеру. Проверка намеренно
// грубее, чем реальные возможности.
func Validate(rows []model.RawRow, mapping model.FieldMapping, kind model.EntityKind) model.Validation {
	if len(rows) == 0 {
		return invalid("Filen innehåller inga rader att importera")
	}
	if mapping.MappedCount() == 0 {
		return invalid("Inga fält är mappade")
	}

	switch kind {
	case model.EntityCustomers:
		emailCol, ok := mapping.SourceFor("email")
		if !ok {
			return invalid("Fältet email måste mappas")
		}
		for i, row := range rows {
			if isBlank(row[emailCol]) {
				return invalid(fmt.Sprintf("%s: e-post saknas i kolumnen %q", model.RowLabel(i+1), emailCol))
			}
		}
	case model.EntityTickets:
		if _, ok := mapping.SourceFor("customerEmail"); !ok {
			return invalid("Fältet customerEmail måste mappas")
		}
	default:
		return invalid(fmt.Sprintf("Okänd entitetstyp %q", kind))
	}
	return model.Validation{Valid: true}
}

func invalid(msg string) model.Validation { return model.Validation{Valid: false, Message: msg} }

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, _ := stringify(v)
	return strings.TrimSpace(s) == ""
}
