package database

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tieubaoca/pdfchat/types"
)

// MemoryStore holds sessions in process memory. Values are copied on the way
// in and out so callers never share a session with the cache.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 6
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &MemoryStore{
		cache: cache.New(ttl, cleanup),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.Session, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*types.Session).Clone(), nil
	}
	return nil, types.ErrSessionNotFound
}

func (s *MemoryStore) Save(_ context.Context, session *types.Session) error {
	s.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
