package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/config"
	"helpdesk-transfer/internal/middleware"
	"helpdesk-transfer/internal/transfer/model"
)

// Store: то, что обработчикам нужно от слоя хранения.
type Store interface {
	FieldDefinitions(ctx context.Context, tenant uuid.UUID, typeID int64) ([]model.FieldDefinition, error)
	PersistCustomers(ctx context.Context, tenant uuid.UUID, opts model.ImportOptions, batch []model.CustomerDraft) (model.BatchOutcome, error)
	PersistTickets(ctx context.Context, tenant uuid.UUID, batch []model.TicketDraft) (model.BatchOutcome, error)
	ListCustomers(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.CustomerRecord, error)
	ListTickets(ctx context.Context, tenant uuid.UUID, withRelations bool) ([]model.TicketRecord, error)
}

type Handler struct {
	cfg   config.Config
	store Store
	log   zerolog.Logger
}

// New: обработчики вызываются из роутера как r.Post("/imports", h.Import).
func New(cfg config.Config, store Store, logger zerolog.Logger) *Handler {
	return &Handler{cfg: cfg, store: store, log: logger}
}

// requestLog привязывает rid и арендатора к логгеру запроса.
func (h *Handler) requestLog(r *http.Request) zerolog.Logger {
	ctx := h.log.With()
	if rid := middleware.GetRequestID(r); rid != "" {
		ctx = ctx.Str("rid", rid)
	}
	if tenant, ok := middleware.TenantID(r); ok {
		ctx = ctx.Str("tenant", tenant.String())
	}
	return ctx.Logger()
}
