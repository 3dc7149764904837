package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recover превращает панику обработчика в 500 с JSON-телом.
// http.ErrAbortHandler пробрасывается дальше, его обрабатывает net/http.
func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ev := logger.Error().
					Str("rid", GetRequestID(r)).
					Str("method", r.Method).
					Str("path", r.URL.Path)
				if t, ok := TenantID(r); ok {
					ev = ev.Str("tenant", t.String())
				}
				ev.Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("panic recovered")

				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internt fel"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
