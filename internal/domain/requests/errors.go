package requests

import (
	"errors"
	"fmt"
	"strings"

	"participation-service/internal/lookup"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Motivos de conflicto. Todos envuelven ErrConflict.
var (
	ErrDuplicateRequest  = fmt.Errorf("%w: duplicate request", ErrConflict)
	ErrSelfRequest       = fmt.Errorf("%w: self-request", ErrConflict)
	ErrEventNotPublished = fmt.Errorf("%w: event not published", ErrConflict)
	ErrLimitReached      = fmt.Errorf("%w: limit reached", ErrConflict)
	ErrNotPending        = fmt.Errorf("%w: request not pending", ErrConflict)
	ErrNotOwner          = fmt.Errorf("%w: not owner", ErrConflict)
	ErrNotInitiator      = fmt.Errorf("%w: not initiator", ErrConflict)
	ErrUnsupportedStatus = fmt.Errorf("%w: unsupported status", ErrConflict)
)

// fromLookup traduce los errores del helper de lookups al vocabulario del dominio.
func fromLookup(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lookup.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, lookup.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	default:
		return err
	}
}

// Reason devuelve el motivo legible de un conflicto ("limit reached", ...).
// Para otros errores devuelve "".
func Reason(err error) string {
	for _, e := range conflictReasons {
		if errors.Is(err, e) {
			return strings.TrimPrefix(e.Error(), ErrConflict.Error()+": ")
		}
	}
	return ""
}

var conflictReasons = []error{
	ErrDuplicateRequest, ErrSelfRequest, ErrEventNotPublished, ErrLimitReached,
	ErrNotPending, ErrNotOwner, ErrNotInitiator, ErrUnsupportedStatus,
}
