package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"helpdesk-transfer/internal/store"
)

// refreshFieldDefinitions периодически обновляет устаревшие записи кэша
// полей шаблонов, пока не отменён ctx.
func refreshFieldDefinitions(ctx context.Context, st *store.Store, every time.Duration, logger zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.RefreshFieldDefinitions(ctx); n > 0 {
				logger.Debug().Int("refreshed", n).Msg("field definitions cache")
			}
		}
	}
}
