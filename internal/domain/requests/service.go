package requests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"participation-service/internal/lookup"
	"participation-service/internal/platform/logger"
	"participation-service/internal/ports/directory"
)

// Lookups es lo que el servicio usa del helper de lookups (*lookup.Helper).
type Lookups interface {
	FetchUserOrFail(ctx context.Context, id string) (directory.UserFacts, error)
	FetchEventOrFail(ctx context.Context, id string) (directory.EventFacts, error)
	FetchEventOrDegrade(ctx context.Context, id string) (lookup.Event, error)
	FetchEventsOrDegrade(ctx context.Context, ids []string) []lookup.Event
	FetchUsersOrDegrade(ctx context.Context, ids []string) []lookup.User
}

type Service struct {
	repo    Repository
	lookups Lookups
	log     logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo Repository, lookups Lookups, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		lookups: lookups,
		log:     logger.Nop(),
		tracer:  noop.NewTracerProvider().Tracer("requests"),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit crea una solicitud de participación.
// Orden de validación: usuario, evento, duplicado, auto-solicitud, publicado, cupo.
// Las validaciones sobre el store y el insert corren dentro de InEventTx, así que
// dos Submit concurrentes no pueden superar el límite.
func (s *Service) Submit(ctx context.Context, userID, eventID string) (Request, error) {
	userID = strings.TrimSpace(userID)
	eventID = strings.TrimSpace(eventID)
	if userID == "" || eventID == "" {
		return Request{}, ErrInvalidInput
	}

	ctx, span := s.tracer.Start(ctx, "requests.Submit", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("event.id", eventID),
	))
	defer span.End()

	if _, err := s.lookups.FetchUserOrFail(ctx, userID); err != nil {
		return Request{}, s.fail(span, fromLookup(err))
	}
	ev, err := s.lookups.FetchEventOrFail(ctx, eventID)
	if err != nil {
		return Request{}, s.fail(span, fromLookup(err))
	}

	var created Request
	err = s.repo.InEventTx(ctx, eventID, func(tx EventTx) error {
		dup, err := tx.HasActiveRequest(ctx, userID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateRequest
		}
		if ev.InitiatorID == userID {
			return ErrSelfRequest
		}
		if !ev.Published() {
			return ErrEventNotPublished
		}
		if ev.ParticipantLimit > 0 {
			n, err := tx.CountConfirmed(ctx)
			if err != nil {
				return err
			}
			if n >= ev.ParticipantLimit {
				return ErrLimitReached
			}
		}

		status := StatusPending
		if ev.ParticipantLimit == 0 || !ev.RequestModeration {
			status = StatusConfirmed
		}

		now := s.now().UTC()
		created = Request{
			ID:          uuid.NewString(),
			RequesterID: userID,
			EventID:     eventID,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Insert(ctx, created)
	})
	if err != nil {
		return Request{}, s.fail(span, err)
	}

	span.SetAttributes(attribute.String("request.status", string(created.Status)))
	s.log.Info("participation request created", logger.Fields{
		"request_id": created.ID,
		"user_id":    userID,
		"event_id":   eventID,
		"status":     created.Status,
	})
	return created, nil
}

// Cancel pasa la solicitud a CANCELED desde cualquier estado.
// Cancelar una ya cancelada no es error.
func (s *Service) Cancel(ctx context.Context, userID, requestID string) (Request, error) {
	userID = strings.TrimSpace(userID)
	requestID = strings.TrimSpace(requestID)
	if userID == "" || requestID == "" {
		return Request{}, ErrInvalidInput
	}

	ctx, span := s.tracer.Start(ctx, "requests.Cancel", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, s.fail(span, err)
	}
	if r.RequesterID != userID {
		return Request{}, s.fail(span, ErrNotOwner)
	}

	var out Request
	err = s.repo.InEventTx(ctx, r.EventID, func(tx EventTx) error {
		cur, err := getOne(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if cur.Status == StatusCanceled {
			out = cur
			return nil
		}
		if err := tx.SetStatus(ctx, []string{requestID}, StatusCanceled, s.now().UTC()); err != nil {
			return err
		}
		out, err = getOne(ctx, tx, requestID)
		return err
	})
	if err != nil {
		return Request{}, s.fail(span, err)
	}
	return out, nil
}

// Moderate confirma o rechaza un lote de solicitudes PENDING del evento.
//
// Si el lote supera el cupo libre se confirman los primeros en el orden recibido,
// se rechaza el resto del lote y todas las PENDING que queden en el evento.
// El resultado incluye solo las solicitudes del lote.
func (s *Service) Moderate(ctx context.Context, organizerID, eventID string, requestIDs []string, target Status) (ModerationResult, error) {
	organizerID = strings.TrimSpace(organizerID)
	eventID = strings.TrimSpace(eventID)
	if organizerID == "" || eventID == "" {
		return ModerationResult{}, ErrInvalidInput
	}

	ctx, span := s.tracer.Start(ctx, "requests.Moderate", trace.WithAttributes(
		attribute.String("user.id", organizerID),
		attribute.String("event.id", eventID),
		attribute.String("target.status", string(target)),
		attribute.Int("batch.size", len(requestIDs)),
	))
	defer span.End()

	ev, err := s.lookups.FetchEventOrFail(ctx, eventID)
	if err != nil {
		return ModerationResult{}, s.fail(span, fromLookup(err))
	}
	if ev.InitiatorID != organizerID {
		return ModerationResult{}, s.fail(span, ErrNotInitiator)
	}
	// Sin límite o sin pre-moderación las solicitudes ya se confirmaron al crearse.
	if ev.ParticipantLimit < 1 || !ev.RequestModeration {
		span.SetAttributes(attribute.Bool("moderation.noop", true))
		return ModerationResult{Confirmed: []Request{}, Rejected: []Request{}}, nil
	}

	ids := dedupe(requestIDs)
	if len(ids) == 0 {
		return ModerationResult{}, s.fail(span, fmt.Errorf("%w: requestIds required", ErrInvalidInput))
	}

	var res ModerationResult
	err = s.repo.InEventTx(ctx, eventID, func(tx EventTx) error {
		batch, err := tx.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(batch) != len(ids) {
			return fmt.Errorf("%w: request %s", ErrNotFound, firstMissing(ids, batch))
		}
		for _, r := range batch {
			if r.Status != StatusPending {
				return fmt.Errorf("%w: %s", ErrNotPending, r.ID)
			}
		}

		now := s.now().UTC()
		var confirm, reject []string
		cascade := false

		switch target {
		case StatusRejected:
			reject = ids
		case StatusConfirmed:
			n, err := tx.CountConfirmed(ctx)
			if err != nil {
				return err
			}
			free := ev.ParticipantLimit - n
			if free <= 0 {
				return ErrLimitReached
			}
			if len(ids) <= free {
				confirm = ids
			} else {
				confirm, reject = ids[:free], ids[free:]
				cascade = true
			}
		default:
			return ErrUnsupportedStatus
		}

		if len(confirm) > 0 {
			if err := tx.SetStatus(ctx, confirm, StatusConfirmed, now); err != nil {
				return err
			}
		}
		if len(reject) > 0 {
			if err := tx.SetStatus(ctx, reject, StatusRejected, now); err != nil {
				return err
			}
		}
		if cascade {
			n, err := tx.RejectPending(ctx, now)
			if err != nil {
				return err
			}
			span.SetAttributes(attribute.Int("moderation.cascade_rejected", n))
		}

		if res.Confirmed, err = tx.GetByIDs(ctx, confirm); err != nil {
			return err
		}
		res.Rejected, err = tx.GetByIDs(ctx, reject)
		return err
	})
	if err != nil {
		return ModerationResult{}, s.fail(span, err)
	}

	if res.Confirmed == nil {
		res.Confirmed = []Request{}
	}
	if res.Rejected == nil {
		res.Rejected = []Request{}
	}
	s.log.Info("requests moderated", logger.Fields{
		"event_id":  eventID,
		"target":    target,
		"confirmed": len(res.Confirmed),
		"rejected":  len(res.Rejected),
	})
	return res, nil
}

func (s *Service) ListForRequester(ctx context.Context, userID string) ([]Request, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByRequester(ctx, userID)
}

// ListForRequesterWithEvents agrega los datos de cada evento en modo degradado:
// si el directorio de eventos no responde, las filas traen un placeholder.
func (s *Service) ListForRequesterWithEvents(ctx context.Context, userID string) ([]RequesterEntry, error) {
	items, err := s.ListForRequester(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, r := range items {
		ids[i] = r.EventID
	}
	events := s.lookups.FetchEventsOrDegrade(ctx, ids)

	out := make([]RequesterEntry, len(items))
	for i, r := range items {
		out[i] = RequesterEntry{Request: r, Event: events[i]}
	}
	return out, nil
}

// GetForRequester devuelve una solicitud propia con los datos del evento.
func (s *Service) GetForRequester(ctx context.Context, userID, requestID string) (RequesterEntry, error) {
	userID = strings.TrimSpace(userID)
	requestID = strings.TrimSpace(requestID)
	if userID == "" || requestID == "" {
		return RequesterEntry{}, ErrInvalidInput
	}

	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return RequesterEntry{}, err
	}
	if r.RequesterID != userID {
		// No revela solicitudes ajenas.
		return RequesterEntry{}, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
	}

	ev, err := s.lookups.FetchEventOrDegrade(ctx, r.EventID)
	if err != nil {
		// El evento ya no existe en el directorio; la solicitud sigue siendo válida.
		ev = lookup.UnknownEvent(r.EventID)
	}
	return RequesterEntry{Request: r, Event: ev}, nil
}

// ListForEvent requiere que userID sea el organizador del evento.
func (s *Service) ListForEvent(ctx context.Context, organizerID, eventID string) ([]Request, error) {
	organizerID = strings.TrimSpace(organizerID)
	eventID = strings.TrimSpace(eventID)
	if organizerID == "" || eventID == "" {
		return nil, ErrInvalidInput
	}

	ev, err := s.lookups.FetchEventOrFail(ctx, eventID)
	if err != nil {
		return nil, fromLookup(err)
	}
	if ev.InitiatorID != organizerID {
		return nil, ErrNotInitiator
	}
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *Service) ListForEventWithRequesters(ctx context.Context, organizerID, eventID string) ([]EventEntry, error) {
	items, err := s.ListForEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, r := range items {
		ids[i] = r.RequesterID
	}
	users := s.lookups.FetchUsersOrDegrade(ctx, ids)

	out := make([]EventEntry, len(items))
	for i, r := range items {
		out[i] = EventEntry{Request: r, Requester: users[i]}
	}
	return out, nil
}

func (s *Service) ConfirmedCount(ctx context.Context, eventID string) (int, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.CountConfirmed(ctx, eventID)
}

// ConfirmedCountBatch omite los eventos sin confirmadas: ausente == 0.
func (s *Service) ConfirmedCountBatch(ctx context.Context, eventIDs []string) (map[string]int, error) {
	ids := dedupe(eventIDs)
	if len(ids) == 0 {
		return map[string]int{}, nil
	}
	return s.repo.CountConfirmedByEvents(ctx, ids)
}

// CheckParticipation devuelve el estado de la solicitud activa de userID para eventID.
func (s *Service) CheckParticipation(ctx context.Context, userID, eventID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	eventID = strings.TrimSpace(eventID)
	if userID == "" || eventID == "" {
		return "", ErrInvalidInput
	}
	r, err := s.repo.GetActive(ctx, userID, eventID)
	if err != nil {
		return "", err
	}
	return r.Status, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	if !isExpected(err) {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// isExpected: errores que son resultado normal de la entrada o el estado.
func isExpected(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

func getOne(ctx context.Context, tx EventTx, id string) (Request, error) {
	rs, err := tx.GetByIDs(ctx, []string{id})
	if err != nil {
		return Request{}, err
	}
	if len(rs) == 0 {
		return Request{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return rs[0], nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func firstMissing(ids []string, found []Request) string {
	have := make(map[string]struct{}, len(found))
	for _, r := range found {
		have[r.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return id
		}
	}
	return ""
}

// SortByCreation ordena por CreatedAt y luego por ID. Lo usan los stores.
func SortByCreation(items []Request) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
