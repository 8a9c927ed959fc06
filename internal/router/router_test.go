package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"participation-service/internal/adapters/directory/events"
	"participation-service/internal/adapters/directory/users"
	"participation-service/internal/router"
)

// directoryServer simula los servicios de usuarios y eventos.
// Con eventsDown=true los endpoints de eventos devuelven 503.
type directoryServer struct {
	*httptest.Server
	eventsDown atomic.Bool
}

func newDirectoryServer(t *testing.T) *directoryServer {
	t.Helper()

	usersByID := map[string]map[string]any{}
	for _, id := range []string{"org", "u1", "u2", "u3", "u4"} {
		usersByID[id] = map[string]any{"id": id, "name": "User " + id, "email": id + "@example.com"}
	}
	eventsByID := map[string]map[string]any{
		"E1": {"id": "E1", "initiator_id": "org", "state": "PUBLISHED", "participant_limit": 2, "request_moderation": true},
		"E2": {"id": "E2", "initiator_id": "org", "state": "PUBLISHED", "participant_limit": 0, "request_moderation": true},
	}

	ds := &directoryServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/internal/users/", func(w http.ResponseWriter, r *http.Request) {
		u, ok := usersByID[strings.TrimPrefix(r.URL.Path, "/internal/users/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(u)
	})
	mux.HandleFunc("/internal/users", func(w http.ResponseWriter, r *http.Request) {
		out := []map[string]any{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if u, ok := usersByID[id]; ok {
				out = append(out, u)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/internal/events/", func(w http.ResponseWriter, r *http.Request) {
		if ds.eventsDown.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		e, ok := eventsByID[strings.TrimPrefix(r.URL.Path, "/internal/events/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(e)
	})
	mux.HandleFunc("/internal/events", func(w http.ResponseWriter, r *http.Request) {
		if ds.eventsDown.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		out := []map[string]any{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if e, ok := eventsByID[id]; ok {
				out = append(out, e)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	ds.Server = httptest.NewServer(mux)
	t.Cleanup(ds.Close)
	return ds
}

func newTestServer(t *testing.T) (*httptest.Server, *directoryServer) {
	t.Helper()

	dir := newDirectoryServer(t)
	userClient, err := users.NewClient(users.Config{BaseURL: dir.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("users client: %v", err)
	}
	eventClient, err := events.NewClient(events.Config{BaseURL: dir.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("events client: %v", err)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{
		Users:            userClient,
		Events:           eventClient,
		DirectoryTimeout: time.Second,
		ServiceAPIKey:    "svc-key",
		IdempotencyTTL:   time.Minute,
	}))
	t.Cleanup(ts.Close)
	return ts, dir
}

type requestDTO struct {
	ID        string `json:"id"`
	Requester string `json:"requester"`
	Event     string `json:"event"`
	Status    string `json:"status"`
}

func TestHTTP_EndToEnd_ModerationCascade(t *testing.T) {
	ts, _ := newTestServer(t)

	// 1) Cuatro usuarios piden participar en E1 (límite 2, con moderación)
	r4 := submit(t, ts.URL, "u4", "E1")
	r1 := submit(t, ts.URL, "u1", "E1")
	r2 := submit(t, ts.URL, "u2", "E1")
	r3 := submit(t, ts.URL, "u3", "E1")
	if r1.Status != "PENDING" {
		t.Fatalf("expected PENDING, got %s", r1.Status)
	}

	// 2) Duplicado => 409
	{
		st, body := doReq(t, ts.URL, "POST", "/users/u1/requests?eventId=E1", nil, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate, got %d body=%s", st, string(body))
		}
		var e struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Reason != "duplicate request" {
			t.Fatalf("expected reason duplicate request, got %q", e.Reason)
		}
	}

	// 3) Solo el organizador puede moderar
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/users/u1/events/E1/requests", map[string]any{
			"requestIds": []string{r1.ID},
			"status":     "CONFIRMED",
		}, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 not initiator, got %d", st)
		}
	}

	// 4) Confirmar [R1,R2,R3] => R1,R2 confirmadas; R3 rechazada; R4 rechazada en cascada
	{
		st, body := doReq(t, ts.URL, "PATCH", "/users/org/events/E1/requests", map[string]any{
			"requestIds": []string{r1.ID, r2.ID, r3.ID},
			"status":     "CONFIRMED",
		}, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 moderate, got %d body=%s", st, string(body))
		}
		var res struct {
			ConfirmedRequests []requestDTO `json:"confirmedRequests"`
			RejectedRequests  []requestDTO `json:"rejectedRequests"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(res.ConfirmedRequests) != 2 || res.ConfirmedRequests[0].ID != r1.ID || res.ConfirmedRequests[1].ID != r2.ID {
			t.Fatalf("unexpected confirmed: %+v", res.ConfirmedRequests)
		}
		if len(res.RejectedRequests) != 1 || res.RejectedRequests[0].ID != r3.ID {
			t.Fatalf("unexpected rejected: %+v", res.RejectedRequests)
		}
	}

	// 5) R4 quedó rechazada
	{
		st, body := doReq(t, ts.URL, "GET", "/users/u4/requests/"+r4.ID, nil, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get request, got %d body=%s", st, string(body))
		}
		var got requestDTO
		_ = json.Unmarshal(body, &got)
		if got.Status != "REJECTED" {
			t.Fatalf("expected R4 REJECTED, got %s", got.Status)
		}
	}

	// 6) Conteo interno requiere API key
	{
		st, _ := doReq(t, ts.URL, "GET", "/internal/events/E1/confirmed-count", nil, nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without key, got %d", st)
		}
		st, body := doReq(t, ts.URL, "GET", "/internal/events/confirmed-counts?ids=E1,E2", nil, map[string]string{"X-Api-Key": "svc-key"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 counts, got %d body=%s", st, string(body))
		}
		var counts map[string]int
		_ = json.Unmarshal(body, &counts)
		if counts["E1"] != 2 {
			t.Fatalf("expected E1=2, got %v", counts)
		}
		if _, ok := counts["E2"]; ok {
			t.Fatalf("expected E2 omitted, got %v", counts)
		}
	}

	// 7) El solicitante cancela su confirmada
	{
		st, body := doReq(t, ts.URL, "PATCH", "/users/u1/requests/"+r1.ID+"/cancel", nil, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 cancel, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "PATCH", "/users/u2/requests/"+r1.ID+"/cancel", nil, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 cancel by non-owner, got %d", st)
		}
	}

	// 8) checkParticipation
	{
		st, body := doReq(t, ts.URL, "GET", "/internal/participation?userId=u2&eventId=E1", nil, map[string]string{"X-Api-Key": "svc-key"})
		if st != http.StatusOK || !strings.Contains(string(body), "CONFIRMED") {
			t.Fatalf("expected u2 CONFIRMED, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/internal/participation?userId=u1&eventId=E1", nil, map[string]string{"X-Api-Key": "svc-key"})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after cancel, got %d", st)
		}
	}
}

func TestHTTP_UnlimitedEventAutoConfirmsAndModerationIsNoop(t *testing.T) {
	ts, _ := newTestServer(t)

	r := submit(t, ts.URL, "u1", "E2")
	if r.Status != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %s", r.Status)
	}

	st, body := doReq(t, ts.URL, "PATCH", "/users/org/events/E2/requests", map[string]any{
		"requestIds": []string{r.ID},
		"status":     "REJECTED",
	}, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", st, string(body))
	}
	if !strings.Contains(string(body), `"confirmedRequests":[]`) || !strings.Contains(string(body), `"rejectedRequests":[]`) {
		t.Fatalf("expected empty result, got %s", string(body))
	}
}

func TestHTTP_EventDirectoryDown(t *testing.T) {
	ts, dir := newTestServer(t)
	r := submit(t, ts.URL, "u1", "E1")

	dir.eventsDown.Store(true)

	// Escritura: falla con 503 y no crea nada
	st, _ := doReq(t, ts.URL, "POST", "/users/u2/requests?eventId=E1", nil, nil)
	if st != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 submit, got %d", st)
	}

	// Lectura del solicitante: degrada
	st, body := doReq(t, ts.URL, "GET", "/users/u1/requests", nil, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list, got %d body=%s", st, string(body))
	}
	var items []struct {
		ID        string `json:"id"`
		EventInfo struct {
			ID          string `json:"id"`
			Unavailable bool   `json:"unavailable"`
		} `json:"eventInfo"`
	}
	_ = json.Unmarshal(body, &items)
	if len(items) != 1 || items[0].ID != r.ID || !items[0].EventInfo.Unavailable || items[0].EventInfo.ID != "E1" {
		t.Fatalf("expected one degraded row, got %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/users/u2/requests", nil, nil)
	if st != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected no request for u2, got %d body=%s", st, string(body))
	}
}

func TestHTTP_IdempotencyKeyReplaysSubmit(t *testing.T) {
	ts, _ := newTestServer(t)
	hdr := map[string]string{"Idempotency-Key": "abc-123"}

	st1, body1 := doReq(t, ts.URL, "POST", "/users/u1/requests?eventId=E1", nil, hdr)
	st2, body2 := doReq(t, ts.URL, "POST", "/users/u1/requests?eventId=E1", nil, hdr)

	if st1 != http.StatusCreated || st2 != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", st1, st2)
	}
	if !bytes.Equal(body1, body2) {
		t.Fatalf("expected replayed body, got %s vs %s", body1, body2)
	}
}

func TestHTTP_UnknownEventIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	st, _ := doReq(t, ts.URL, "POST", "/users/u1/requests?eventId=nope", nil, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "POST", "/users/u1/requests", nil, nil)
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 without eventId, got %d", st)
	}
}

func submit(t *testing.T, baseURL, userID, eventID string) requestDTO {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/users/"+userID+"/requests?eventId="+eventID, nil, nil)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 submit, got %d body=%s", st, string(body))
	}

	var resp requestDTO
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("submit: missing id body=%s", string(body))
	}
	return resp
}

func doReq(t *testing.T, baseURL, method, path string, body any, headers map[string]string) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
