package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const TenantHeader = "X-Tenant-ID"

// Tenant требует заголовок X-Tenant-ID с UUID арендатора.
// Аутентификация живёт снаружи; здесь только разбор.
func Tenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(TenantHeader))
			if err != nil || id == uuid.Nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"X-Tenant-ID saknas eller är ogiltig"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey, id)))
		})
	}
}

// TenantID: арендатор текущего запроса; false, если Tenant() не отработал.
func TenantID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(tenantKey).(uuid.UUID)
	return id, ok
}
