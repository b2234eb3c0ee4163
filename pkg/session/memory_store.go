package session

import (
	"context"
	"sync"
	"time"

	"sarathi-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the dev/test fallback when Redis is unreachable.
// go-cache handles the TTL sweep; the mutex makes the version check
// and write atomic.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

var _ Store = &MemoryStore{}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	x, found := m.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	return x.(*store.Session).Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if x, found := m.cache.Get(s.ID); found {
		current := x.(*store.Session)
		if current.Version != s.Version {
			return ErrVersionConflict
		}
	} else if s.Version != 0 {
		return ErrVersionConflict
	}

	next := s.Clone()
	next.Version = s.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.cache.Set(s.ID, next, cache.DefaultExpiration)

	s.Version = next.Version
	s.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Delete(id)
	return nil
}
