package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"helpdesk-transfer/internal/fileio"
	"helpdesk-transfer/internal/transfer/model"
	"helpdesk-transfer/internal/transfer/service"
)

var exportSheetNames = map[model.EntityKind]string{
	model.EntityCustomers: "Kunder",
	model.EntityTickets:   "Ärenden",
}

// Export: GET /exports?entity=tickets&format=excel&relations=true
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r)
	tenant, err := tenantOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	kind, err := parseEntity(q.Get("entity"))
	if err != nil {
		writeError(w, err)
		return
	}
	format := fileio.ExportCSV
	if f := q.Get("format"); f != "" {
		var ok bool
		if format, ok = fileio.ParseExportFormat(f); !ok {
			writeError(w, badRequest("okänt format %q (csv, excel, json)", f))
			return
		}
	}
	withRelations := toBool(q.Get("relations"), false)

	var table service.ExportTable
	switch kind {
	case model.EntityCustomers:
		customers, err := h.store.ListCustomers(r.Context(), tenant, withRelations)
		if err != nil {
			log.Error().Err(err).Msg("export: list customers")
			writeError(w, err)
			return
		}
		table = service.FlattenCustomers(customers, withRelations)
	case model.EntityTickets:
		tickets, err := h.store.ListTickets(r.Context(), tenant, withRelations)
		if err != nil {
			log.Error().Err(err).Msg("export: list tickets")
			writeError(w, err)
			return
		}
		table = service.FlattenTickets(tickets, withRelations)
	}

	// в буфер: ошибка записи должна успеть стать JSON-ответом
	var buf bytes.Buffer
	if err := fileio.Write(&buf, format, exportSheetNames[kind], table.Columns, table.Records); err != nil {
		log.Error().Err(err).Msg("export: write")
		writeError(w, err)
		return
	}

	name := fmt.Sprintf("%s-%s%s", kind, time.Now().UTC().Format("20060102-150405"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("export: send")
		return
	}
	log.Info().Str("entity", string(kind)).Str("format", string(format)).Int("records", len(table.Records)).Msg("export done")
}
