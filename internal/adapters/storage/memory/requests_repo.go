package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"participation-service/internal/domain/requests"
)

// requestRepo guarda las solicitudes en memoria (modo dev y tests).
// InEventTx serializa por evento con un mutex propio de cada evento; las
// escrituras de la tx quedan en staging y se aplican solo si fn no falla.
type requestRepo struct {
	mu   sync.RWMutex
	byID map[string]requests.Request

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewRequestRepo() requests.Repository {
	return &requestRepo{
		byID:  make(map[string]requests.Request),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return requests.Request{}, fmt.Errorf("request %s: %w", id, requests.ErrNotFound)
	}
	return req, nil
}

func (r *requestRepo) ListByRequester(ctx context.Context, requesterID string) ([]requests.Request, error) {
	return r.filter(func(req requests.Request) bool { return req.RequesterID == requesterID }), nil
}

func (r *requestRepo) ListByEvent(ctx context.Context, eventID string) ([]requests.Request, error) {
	return r.filter(func(req requests.Request) bool { return req.EventID == eventID }), nil
}

func (r *requestRepo) GetActive(ctx context.Context, requesterID, eventID string) (requests.Request, error) {
	items := r.filter(func(req requests.Request) bool {
		return req.RequesterID == requesterID && req.EventID == eventID && req.Active()
	})
	if len(items) == 0 {
		return requests.Request{}, fmt.Errorf("no active request of %s for event %s: %w", requesterID, eventID, requests.ErrNotFound)
	}
	return items[len(items)-1], nil
}

func (r *requestRepo) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	return len(r.filter(func(req requests.Request) bool {
		return req.EventID == eventID && req.Status == requests.StatusConfirmed
	})), nil
}

func (r *requestRepo) CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int, error) {
	want := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[string]int{}
	for _, req := range r.byID {
		if req.Status != requests.StatusConfirmed {
			continue
		}
		if _, ok := want[req.EventID]; ok {
			out[req.EventID]++
		}
	}
	return out, nil
}

func (r *requestRepo) InEventTx(ctx context.Context, eventID string, fn func(tx requests.EventTx) error) error {
	lock := r.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{repo: r, eventID: eventID, staged: map[string]requests.Request{}}
	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, req := range tx.staged {
		r.byID[id] = req
	}
	return nil
}

func (r *requestRepo) eventLock(eventID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[eventID] = l
	}
	return l
}

func (r *requestRepo) filter(keep func(requests.Request) bool) []requests.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]requests.Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	requests.SortByCreation(out)
	return out
}

// memTx ve el store más sus propias escrituras.
type memTx struct {
	repo    *requestRepo
	eventID string
	staged  map[string]requests.Request
}

// snapshot devuelve las solicitudes del evento con el staging aplicado.
func (t *memTx) snapshot() map[string]requests.Request {
	out := map[string]requests.Request{}

	t.repo.mu.RLock()
	for id, req := range t.repo.byID {
		if req.EventID == t.eventID {
			out[id] = req
		}
	}
	t.repo.mu.RUnlock()

	for id, req := range t.staged {
		out[id] = req
	}
	return out
}

func (t *memTx) HasActiveRequest(ctx context.Context, requesterID string) (bool, error) {
	for _, req := range t.snapshot() {
		if req.RequesterID == requesterID && req.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountConfirmed(ctx context.Context) (int, error) {
	n := 0
	for _, req := range t.snapshot() {
		if req.Status == requests.StatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetByIDs(ctx context.Context, ids []string) ([]requests.Request, error) {
	snap := t.snapshot()
	out := make([]requests.Request, 0, len(ids))
	for _, id := range ids {
		if req, ok := snap[id]; ok {
			out = append(out, req)
		}
	}
	return out, nil
}

func (t *memTx) Insert(ctx context.Context, req requests.Request) error {
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("request id required")
	}
	if req.EventID != t.eventID {
		return fmt.Errorf("request %s belongs to event %s, tx is scoped to %s", req.ID, req.EventID, t.eventID)
	}

	snap := t.snapshot()
	if _, exists := snap[req.ID]; exists {
		return fmt.Errorf("request %s already exists", req.ID)
	}
	if req.Active() {
		for _, other := range snap {
			if other.RequesterID == req.RequesterID && other.Active() {
				return requests.ErrDuplicateRequest
			}
		}
	}
	t.staged[req.ID] = req
	return nil
}

func (t *memTx) SetStatus(ctx context.Context, ids []string, status requests.Status, at time.Time) error {
	snap := t.snapshot()
	for _, id := range ids {
		req, ok := snap[id]
		if !ok {
			return fmt.Errorf("request %s: %w", id, requests.ErrNotFound)
		}
		req.Status = status
		req.UpdatedAt = at
		t.staged[id] = req
	}
	return nil
}

func (t *memTx) RejectPending(ctx context.Context, at time.Time) (int, error) {
	n := 0
	for id, req := range t.snapshot() {
		if req.Status != requests.StatusPending {
			continue
		}
		req.Status = requests.StatusRejected
		req.UpdatedAt = at
		t.staged[id] = req
		n++
	}
	return n, nil
}
