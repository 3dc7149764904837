package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/config"
	"helpdesk-transfer/internal/middleware"
	"helpdesk-transfer/internal/transfer/handler"
	"helpdesk-transfer/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, db handlers.Pinger, h *handler.Handler) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handlers.Health(db))

	// всё остальное: в рамках арендатора (X-Tenant-ID)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant())

		r.Post("/imports/preview", h.Preview)
		r.Post("/imports/remap", h.Remap)
		r.Post("/imports", h.Import)
		r.Get("/exports", h.Export)
	})

	return r
}
