package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"participation-service/internal/adapters/idempotency"
	"participation-service/internal/platform/logger"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// Idempotency repite la respuesta guardada cuando llega otra vez el mismo
// Idempotency-Key para el mismo método y path. Sin header, o en GET/HEAD,
// no hace nada.
// Solo se guardan respuestas < 500: un 503 se puede reintentar.
// Dos requests simultáneos con la misma clave pueden ejecutarse ambos.
func Idempotency(store idempotency.Store, ttl time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if key == "" || store == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			storeKey := r.Method + " " + r.URL.Path + " " + key

			if resp, found, err := store.Get(r.Context(), storeKey); err != nil {
				log.Warn("idempotency store get failed", logger.Fields{"err": err, "request_id": chimw.GetReqID(r.Context())})
			} else if found {
				if resp.ContentType != "" {
					w.Header().Set("Content-Type", resp.ContentType)
				}
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(resp.Status)
				_, _ = w.Write(resp.Body)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var buf bytes.Buffer
			ww.Tee(&buf)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			err := store.Put(r.Context(), storeKey, idempotency.Response{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        buf.Bytes(),
			}, ttl)
			if err != nil {
				log.Warn("idempotency store put failed", logger.Fields{"err": err, "request_id": chimw.GetReqID(r.Context())})
			}
		})
	}
}
