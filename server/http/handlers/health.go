package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger: то, что умеет проверить соединение (pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health отвечает 200, если база доступна, иначе 503.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body, code := healthBody{Status: "ok", Database: "up"}, http.StatusOK
		if err := db.Ping(ctx); err != nil {
			body, code = healthBody{Status: "degraded", Database: "down"}, http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
