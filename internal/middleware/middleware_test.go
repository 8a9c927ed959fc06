package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"participation-service/internal/adapters/idempotency"
	"participation-service/internal/platform/logger"
)

func TestServiceKey(t *testing.T) {
	h := ServiceKey("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", APIKeyHeader, "nope", http.StatusUnauthorized},
		{"api key", APIKeyHeader, "s3cret", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/internal/x", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestServiceKey_EmptyKeyIsOpen(t *testing.T) {
	h := ServiceKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(idempotency.NewMemoryStore(time.Minute), time.Minute, logger.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
		}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/users/u1/requests?eventId=e1", nil)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do("k1")
	second := do("k1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "true", second.Header().Get(ReplayedHeader))
	require.Equal(t, int32(1), calls.Load())

	do("k2")
	do("")
	require.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_DoesNotStoreServerErrors(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(idempotency.NewMemoryStore(time.Minute), time.Minute, logger.Nop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPatch, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, int32(2), calls.Load())
}

func TestRecoverAndRequestLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Output: &buf})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLog(log))
	r.Use(Recover(log))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out := buf.String()
	require.Contains(t, out, "panic=kaboom")
	require.Contains(t, out, "msg=http request")
	require.Contains(t, out, "status=500")
}
