package requests

import (
	"strings"
	"time"

	"participation-service/internal/lookup"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCanceled  Status = "CANCELED"
)

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCanceled:
		return st, true
	default:
		return st, false
	}
}

// Request es una solicitud de participación. Nunca se borra físicamente.
type Request struct {
	ID string

	RequesterID string
	EventID     string

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active: cuenta para la regla de "una solicitud no cancelada por (usuario, evento)".
func (r Request) Active() bool { return r.Status != StatusCanceled }

type ModerationResult struct {
	Confirmed []Request
	Rejected  []Request
}

// RequesterEntry es una fila del listado del solicitante, con los datos del
// evento si el directorio respondió.
type RequesterEntry struct {
	Request Request
	Event   lookup.Event
}

// EventEntry es una fila del listado del organizador.
type EventEntry struct {
	Request   Request
	Requester lookup.User
}
