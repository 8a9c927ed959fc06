package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"participation-service/internal/platform/logger"
	"participation-service/internal/ports/directory"
)

var (
	// ErrNotFound: el colaborador respondió que la entidad no existe.
	ErrNotFound = errors.New("lookup: not found")
	// ErrUnavailable: timeout, transporte o respuesta inválida en modo estricto.
	ErrUnavailable = errors.New("lookup: collaborator unavailable")
)

const DefaultTimeout = 3 * time.Second

// Event es el resultado de una búsqueda de evento. En modo degradado puede ser
// un placeholder: solo ID es confiable y Facts() devuelve ok=false.
type Event struct {
	ID    string
	facts *directory.EventFacts
}

func KnownEvent(f directory.EventFacts) Event { return Event{ID: f.ID, facts: &f} }
func UnknownEvent(id string) Event           { return Event{ID: id} }

func (e Event) Known() bool { return e.facts != nil }

func (e Event) Facts() (directory.EventFacts, bool) {
	if e.facts == nil {
		return directory.EventFacts{}, false
	}
	return *e.facts, true
}

// User: mismo criterio que Event.
type User struct {
	ID    string
	facts *directory.UserFacts
}

func KnownUser(f directory.UserFacts) User { return User{ID: f.ID, facts: &f} }
func UnknownUser(id string) User          { return User{ID: id} }

func (u User) Known() bool { return u.facts != nil }

func (u User) Facts() (directory.UserFacts, bool) {
	if u.facts == nil {
		return directory.UserFacts{}, false
	}
	return *u.facts, true
}

type Options struct {
	Users   directory.UserDirectory
	Events  directory.EventDirectory
	Timeout time.Duration
	Logger  logger.Logger
	Tracer  trace.Tracer
}

// Helper no guarda estado entre llamadas: cada método elige explícitamente
// si falla o degrada.
type Helper struct {
	users   directory.UserDirectory
	events  directory.EventDirectory
	timeout time.Duration
	log     logger.Logger
	tracer  trace.Tracer
}

func New(opts Options) *Helper {
	h := &Helper{
		users:   opts.Users,
		events:  opts.Events,
		timeout: opts.Timeout,
		log:     opts.Logger,
		tracer:  opts.Tracer,
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	if h.tracer == nil {
		h.tracer = noop.NewTracerProvider().Tracer("lookup")
	}
	return h
}

// ---- users ----

func (h *Helper) FetchUserOrFail(ctx context.Context, id string) (directory.UserFacts, error) {
	ctx, span := h.start(ctx, "lookup.FetchUserOrFail", "user-directory", id)
	defer span.End()

	f, err := h.getUser(ctx, id)
	if err != nil {
		return directory.UserFacts{}, h.strict(span, "user-directory", id, err)
	}
	return f, nil
}

func (h *Helper) FetchUserOrDegrade(ctx context.Context, id string) (User, error) {
	ctx, span := h.start(ctx, "lookup.FetchUserOrDegrade", "user-directory", id)
	defer span.End()

	f, err := h.getUser(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return User{}, h.strict(span, "user-directory", id, err)
		}
		h.degraded(span, "user-directory", []string{id}, err)
		return UnknownUser(id), nil
	}
	return KnownUser(f), nil
}

// FetchUsersOrDegrade devuelve un resultado por id, en el mismo orden.
// Ids que el directorio omite quedan como placeholder.
func (h *Helper) FetchUsersOrDegrade(ctx context.Context, ids []string) []User {
	ctx, span := h.start(ctx, "lookup.FetchUsersOrDegrade", "user-directory", "")
	defer span.End()
	span.SetAttributes(attribute.Int("lookup.count", len(ids)))

	out := make([]User, len(ids))
	for i, id := range ids {
		out[i] = UnknownUser(id)
	}
	if len(ids) == 0 {
		return out
	}
	if h.users == nil {
		h.degraded(span, "user-directory", ids, errors.New("not configured"))
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	facts, err := h.users.GetUsers(cctx, uniq(ids))
	if err != nil {
		h.degraded(span, "user-directory", ids, err)
		return out
	}

	byID := make(map[string]directory.UserFacts, len(facts))
	for _, f := range facts {
		byID[f.ID] = f
	}
	for i, id := range ids {
		if f, ok := byID[id]; ok {
			out[i] = KnownUser(f)
		}
	}
	return out
}

// ---- events ----

func (h *Helper) FetchEventOrFail(ctx context.Context, id string) (directory.EventFacts, error) {
	ctx, span := h.start(ctx, "lookup.FetchEventOrFail", "event-directory", id)
	defer span.End()

	f, err := h.getEvent(ctx, id)
	if err != nil {
		return directory.EventFacts{}, h.strict(span, "event-directory", id, err)
	}
	return f, nil
}

func (h *Helper) FetchEventOrDegrade(ctx context.Context, id string) (Event, error) {
	ctx, span := h.start(ctx, "lookup.FetchEventOrDegrade", "event-directory", id)
	defer span.End()

	f, err := h.getEvent(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Event{}, h.strict(span, "event-directory", id, err)
		}
		h.degraded(span, "event-directory", []string{id}, err)
		return UnknownEvent(id), nil
	}
	return KnownEvent(f), nil
}

func (h *Helper) FetchEventsOrDegrade(ctx context.Context, ids []string) []Event {
	ctx, span := h.start(ctx, "lookup.FetchEventsOrDegrade", "event-directory", "")
	defer span.End()
	span.SetAttributes(attribute.Int("lookup.count", len(ids)))

	out := make([]Event, len(ids))
	for i, id := range ids {
		out[i] = UnknownEvent(id)
	}
	if len(ids) == 0 {
		return out
	}
	if h.events == nil {
		h.degraded(span, "event-directory", ids, errors.New("not configured"))
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	facts, err := h.events.GetEvents(cctx, uniq(ids))
	if err != nil {
		h.degraded(span, "event-directory", ids, err)
		return out
	}

	byID := make(map[string]directory.EventFacts, len(facts))
	for _, f := range facts {
		byID[f.ID] = f
	}
	for i, id := range ids {
		if f, ok := byID[id]; ok {
			out[i] = KnownEvent(f)
		}
	}
	return out
}

// ---- internos ----

func (h *Helper) getUser(ctx context.Context, id string) (directory.UserFacts, error) {
	if h.users == nil {
		return directory.UserFacts{}, errors.New("user directory not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.users.GetUser(ctx, id)
}

func (h *Helper) getEvent(ctx context.Context, id string) (directory.EventFacts, error) {
	if h.events == nil {
		return directory.EventFacts{}, errors.New("event directory not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.events.GetEvent(ctx, id)
}

func (h *Helper) start(ctx context.Context, name, collaborator, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("lookup.collaborator", collaborator)}
	if id != "" {
		attrs = append(attrs, attribute.String("lookup.id", id))
	}
	return h.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// strict traduce el error del directorio a ErrNotFound / ErrUnavailable.
func (h *Helper) strict(span trace.Span, collaborator, id string, err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		span.SetAttributes(attribute.Bool("lookup.not_found", true))
		return fmt.Errorf("%s %s: %w", collaborator, id, ErrNotFound)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "collaborator unavailable")
	h.log.Warn("strict lookup failed", logger.Fields{
		"collaborator": collaborator,
		"id":           id,
		"err":          err,
	})
	return fmt.Errorf("%s %s: %w: %v", collaborator, id, ErrUnavailable, err)
}

func (h *Helper) degraded(span trace.Span, collaborator string, ids []string, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("lookup.degraded", true))
	h.log.Warn("lookup degraded to placeholder", logger.Fields{
		"collaborator": collaborator,
		"ids":          ids,
		"err":          err,
	})
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
