package idempotency

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore guarda las respuestas en proceso. Sirve para una sola réplica.
type MemoryStore struct {
	cache *gocache.Cache
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &MemoryStore{cache: gocache.New(defaultTTL, DefaultCleanupInterval)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Response, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return Response{}, false, nil
	}
	resp, ok := v.(Response)
	if !ok {
		s.cache.Delete(key)
		return Response{}, false, nil
	}
	return resp, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, resp, ttl)
	return nil
}
