package directory

import (
	"context"
	"errors"
)

// ErrNotFound lo devuelven los adapters cuando el colaborador responde que la
// entidad no existe. Cualquier otro error se considera falla de comunicación.
var ErrNotFound = errors.New("directory: not found")

type EventState string

const (
	EventStatePending   EventState = "PENDING"
	EventStatePublished EventState = "PUBLISHED"
	EventStateCanceled  EventState = "CANCELED"
)

// UserFacts es lo mínimo que el core necesita de un usuario.
type UserFacts struct {
	ID    string
	Name  string
	Email string
}

// EventFacts es la proyección de solo-lectura de un evento.
// ParticipantLimit == 0 significa sin límite.
type EventFacts struct {
	ID                string
	InitiatorID       string
	State             EventState
	ParticipantLimit  int
	RequestModeration bool
}

func (e EventFacts) Published() bool { return e.State == EventStatePublished }

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (UserFacts, error)
	// GetUsers omite los ids que no existen.
	GetUsers(ctx context.Context, ids []string) ([]UserFacts, error)
}

type EventDirectory interface {
	GetEvent(ctx context.Context, id string) (EventFacts, error)
	// GetEvents omite los ids que no existen.
	GetEvents(ctx context.Context, ids []string) ([]EventFacts, error)
}
