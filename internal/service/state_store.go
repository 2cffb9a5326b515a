package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore guarda el state de cada login federado junto a su redirect_uri.
type StateStore interface {
	Save(state, redirectURI string, ttl time.Duration) error
	// Take devuelve el redirect_uri y consume el state: un state vale una vez.
	Take(state string) (string, bool)
}

type memoryStateStore struct {
	mu    sync.Mutex
	items map[string]stateEntry
}

type stateEntry struct {
	redirectURI string
	expiresAt   time.Time
}

func NewMemoryStateStore() StateStore {
	return &memoryStateStore{
		items: make(map[string]stateEntry),
	}
}

func (s *memoryStateStore) Save(state, redirectURI string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(state) == "" {
		return nil
	}
	s.items[state] = stateEntry{
		redirectURI: redirectURI,
		expiresAt:   time.Now().UTC().Add(ttl),
	}
	return nil
}

func (s *memoryStateStore) Take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[state]
	if !ok {
		return "", false
	}
	delete(s.items, state)
	if time.Now().UTC().After(entry.expiresAt) {
		return "", false
	}
	return entry.redirectURI, true
}

type redisStateStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStateStore(client *redis.Client) StateStore {
	if client == nil {
		return nil
	}
	return &redisStateStore{
		client: client,
		prefix: "oauth:state:",
	}
}

func (s *redisStateStore) Save(state, redirectURI string, ttl time.Duration) error {
	if strings.TrimSpace(state) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+state, redirectURI, ttl).Err()
}

func (s *redisStateStore) Take(state string) (string, bool) {
	if strings.TrimSpace(state) == "" {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	redirectURI, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if err != nil {
		return "", false
	}
	return redirectURI, true
}
