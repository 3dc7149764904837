package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"helpdesk-transfer/internal/fileio"
	"helpdesk-transfer/internal/middleware"
	"helpdesk-transfer/internal/store"
	"helpdesk-transfer/internal/transfer/model"
	"helpdesk-transfer/internal/transfer/service"
)

// httpError: ошибка с HTTP-статусом для ответа.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// writeError: httpError со своим статусом, store.ErrNotFound -> 404, остальное -> 500.
func writeError(w http.ResponseWriter, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		_ = writeJSON(w, he.status, errorBody{Error: he.msg})
	case errors.Is(err, store.ErrNotFound):
		_ = writeJSON(w, http.StatusNotFound, errorBody{Error: "hittades inte"})
	default:
		_ = writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internt fel"})
	}
}

func tenantOf(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.TenantID(r)
	if !ok {
		return uuid.Nil, badRequest("X-Tenant-ID saknas")
	}
	return id, nil
}

func parseEntity(s string) (model.EntityKind, error) {
	kind, ok := model.ParseEntityKind(strings.TrimSpace(s))
	if !ok {
		return "", badRequest("okänd entitet %q (customers eller tickets)", s)
	}
	return kind, nil
}

// readUpload читает файл из multipart-поля "file".
func (h *Handler) readUpload(r *http.Request) (*fileio.Table, fileio.FileType, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, "", &httpError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("filen är större än %d MB", h.cfg.MaxUploadMB)}
		}
		return nil, "", badRequest("ogiltigt multipart-formulär: %v", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", badRequest("fil saknas: %v", err)
	}
	defer f.Close()

	ft := fileio.DetectFileType(hdr.Filename)
	if ft == "" {
		return nil, "", badRequest("filformatet stöds inte: %s", hdr.Filename)
	}
	table, err := fileio.Read(f, hdr.Filename, atoi(r.FormValue("header_row"), 1))
	if err != nil {
		return nil, "", badRequest("kunde inte läsa filen: %v", err)
	}
	if h.cfg.ImportMaxRows > 0 && len(table.Rows) > h.cfg.ImportMaxRows {
		return nil, "", badRequest("filen har för många rader (%d, max %d)", len(table.Rows), h.cfg.ImportMaxRows)
	}
	return table, ft, nil
}

// targetFields: для тикетов с указанным типом добавляются его поля.
func (h *Handler) targetFields(ctx context.Context, tenant uuid.UUID, kind model.EntityKind, ticketTypeID *int64) ([]string, error) {
	var defs []model.FieldDefinition
	if kind == model.EntityTickets && ticketTypeID != nil {
		var err error
		if defs, err = h.store.FieldDefinitions(ctx, tenant, *ticketTypeID); err != nil {
			return nil, err
		}
	}
	return service.TargetFields(kind, defs), nil
}

func optionalInt64(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, badRequest("ogiltigt ticketTypeId %q", s)
	}
	return &n, nil
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on", "ja":
		return true
	case "0", "false", "no", "n", "off", "nej":
		return false
	default:
		return def
	}
}
