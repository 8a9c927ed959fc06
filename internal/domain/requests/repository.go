package requests

import (
	"context"
	"time"
)

// Repository es el Request Store.
// Los listados vienen ordenados por CreatedAt (y por ID a igual fecha).
type Repository interface {
	GetByID(ctx context.Context, id string) (Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]Request, error)
	ListByEvent(ctx context.Context, eventID string) ([]Request, error)

	// GetActive devuelve la solicitud no cancelada de (requester, event).
	GetActive(ctx context.Context, requesterID, eventID string) (Request, error)

	CountConfirmed(ctx context.Context, eventID string) (int, error)
	// CountConfirmedByEvents omite los eventos sin confirmadas.
	CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int, error)

	// InEventTx ejecuta fn con exclusividad sobre las solicitudes de eventID.
	// Si fn devuelve error no se persiste nada de lo escrito en tx.
	InEventTx(ctx context.Context, eventID string, fn func(tx EventTx) error) error
}

// EventTx opera sobre las solicitudes de un único evento.
type EventTx interface {
	HasActiveRequest(ctx context.Context, requesterID string) (bool, error)
	CountConfirmed(ctx context.Context) (int, error)

	// GetByIDs devuelve las solicitudes del evento con esos ids, en el orden
	// pedido. Ids inexistentes o de otro evento se omiten.
	GetByIDs(ctx context.Context, ids []string) ([]Request, error)

	// Insert devuelve ErrDuplicateRequest si ya hay una activa del mismo requester.
	Insert(ctx context.Context, r Request) error
	SetStatus(ctx context.Context, ids []string, status Status, at time.Time) error

	// RejectPending pasa a REJECTED todas las PENDING que quedan en el evento.
	RejectPending(ctx context.Context, at time.Time) (int, error)
}
