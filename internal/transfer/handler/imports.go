package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"helpdesk-transfer/internal/fileio"
	"helpdesk-transfer/internal/transfer/model"
	"helpdesk-transfer/internal/transfer/service"
)

const previewSampleRows = 5

type previewResponse struct {
	FileType     fileio.FileType               `json:"fileType"`
	Headers      []string                      `json:"headers"`
	RowCount     int                           `json:"rowCount"`
	Sample       []model.RawRow                `json:"sample"`
	TargetFields []string                      `json:"targetFields"`
	Mapping      model.FieldMapping            `json:"mapping"`
	Suggestions  map[string][]model.Suggestion `json:"suggestions"`
	Validation   model.Validation              `json:"validation"`
}

// Preview: разбор файла, автосопоставление колонок, альтернативы и
// предварительная проверка. Ничего не пишет.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r)
	tenant, err := tenantOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	table, ft, err := h.readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := parseEntity(r.FormValue("entity"))
	if err != nil {
		writeError(w, err)
		return
	}
	typeID, err := optionalInt64(r.FormValue("ticketTypeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	targets, err := h.targetFields(r.Context(), tenant, kind, typeID)
	if err != nil {
		log.Warn().Err(err).Msg("preview: target fields")
		writeError(w, err)
		return
	}

	mapping := service.BuildMapping(table.Headers, targets, kind)
	suggestions := make(map[string][]model.Suggestion, len(table.Headers))
	for _, col := range table.Headers {
		if s := service.SuggestAlternatives(col, mapping, targets, kind); len(s) > 0 {
			suggestions[col] = s
		}
	}

	sample := table.Rows[:min(len(table.Rows), previewSampleRows)]
	if sample == nil {
		sample = []model.RawRow{}
	}
	resp := previewResponse{
		FileType:     ft,
		Headers:      table.Headers,
		RowCount:     len(table.Rows),
		Sample:       sample,
		TargetFields: targets,
		Mapping:      mapping,
		Suggestions:  suggestions,
		Validation:   service.Validate(table.Rows, mapping, kind),
	}
	log.Info().Str("entity", string(kind)).Int("rows", resp.RowCount).Int("mapped", mapping.MappedCount()).Msg("import preview")
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}

type remapRequest struct {
	Entity       string             `json:"entity"`
	TicketTypeID *int64             `json:"ticketTypeId"`
	Headers      []string           `json:"headers"`
	Mapping      model.FieldMapping `json:"mapping"`
}

type remapResponse struct {
	Mapping model.FieldMapping `json:"mapping"`
	Added   model.FieldMapping `json:"added"`
}

// Remap дополняет маппинг, не трогая то, что пользователь уже выбрал.
func (h *Handler) Remap(w http.ResponseWriter, r *http.Request) {
	log := h.requestLog(r)
	tenant, err := tenantOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req remapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("ogiltig JSON: %v", err))
		return
	}
	kind, err := parseEntity(req.Entity)
	if err != nil {
		writeError(w, err)
		return
	}
	targets, err := h.targetFields(r.Context(), tenant, kind, req.TicketTypeID)
	if err != nil {
		writeError(w, err)
		return
	}

	added := service.Remap(req.Mapping, req.Headers, targets, kind)
	merged := make(model.FieldMapping, len(req.Mapping)+len(added))
	for k, v := range req.Mapping {
		merged[k] = v
	}
	for k, v := range added {
		merged[k] = v
	}
	log.Debug().Str("entity", string(kind)).Int("added", len(added)).Msg("import remap")
	if err := writeJSON(w, http.StatusOK, remapResponse{Mapping: merged, Added: added}); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}

type importResponse struct {
	model.ImportResult
	ErrorGroups map[service.ErrorCategory][]string `json:"errorGroups"`
	Mapping     model.FieldMapping                 `json:"mapping"`
	DurationMS  int64                              `json:"durationMs"`
}

// Import: файл + маппинг (JSON в поле "mapping"; без него: автосопоставление).
// Структурная ошибка: 422 с итогом, где все строки неуспешны.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.requestLog(r)
	tenant, err := tenantOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	table, _, err := h.readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := parseEntity(r.FormValue("entity"))
	if err != nil {
		writeError(w, err)
		return
	}

	var mapping model.FieldMapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			writeError(w, badRequest("ogiltig mappning: %v", err))
			return
		}
	} else {
		typeID, err := optionalInt64(r.FormValue("ticketTypeId"))
		if err != nil {
			writeError(w, err)
			return
		}
		targets, err := h.targetFields(r.Context(), tenant, kind, typeID)
		if err != nil {
			writeError(w, err)
			return
		}
		mapping = service.BuildMapping(table.Headers, targets, kind)
	}

	im := service.NewImporter(log, h.cfg.ImportBatchSize)
	im.Progress = func(p int) { log.Debug().Int("progress", p).Msg("import progress") }

	var res model.ImportResult
	switch kind {
	case model.EntityCustomers:
		opts := model.ImportOptions{
			SkipExisting:   toBool(r.FormValue("skipExisting"), false),
			UpdateExisting: toBool(r.FormValue("updateExisting"), false),
		}
		res, err = im.ImportCustomers(r.Context(), table.Rows, mapping,
			func(ctx context.Context, batch []model.CustomerDraft) (model.BatchOutcome, error) {
				return h.store.PersistCustomers(ctx, tenant, opts, batch)
			})
	case model.EntityTickets:
		// skipExisting/updateExisting для тикетов не действуют: у тикета нет
		// ключа, по которому строку файла можно сопоставить с уже записанной.
		res, err = im.ImportTickets(r.Context(), table.Headers, table.Rows, mapping,
			func(ctx context.Context, batch []model.TicketDraft) (model.BatchOutcome, error) {
				return h.store.PersistTickets(ctx, tenant, batch)
			})
	}

	status := http.StatusOK
	if errors.Is(err, service.ErrInvalidImport) {
		status = http.StatusUnprocessableEntity
		log.Info().Err(err).Msg("import rejected")
	}
	resp := importResponse{
		ImportResult: res,
		ErrorGroups:  service.GroupErrors(res.Errors),
		Mapping:      mapping,
		DurationMS:   time.Since(start).Milliseconds(),
	}
	if err := writeJSON(w, status, resp); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}
