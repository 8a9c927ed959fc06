package idempotency

import (
	"context"
	"time"
)

const (
	DefaultTTL             = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Response es la respuesta HTTP guardada para un Idempotency-Key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store guarda respuestas por clave durante ttl.
type Store interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Put(ctx context.Context, key string, resp Response, ttl time.Duration) error
}
