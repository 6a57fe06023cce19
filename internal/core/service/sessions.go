package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const DefaultSessionCapacity = 10000

var ErrInvalidSession = errors.New("invalid session id")

// Sessions hands out one CartStore per session. Each session persists
// under "<namespace>:<id>". At most capacity stores stay in memory; the
// least recently used one is dropped first and re-hydrated from the
// key-value store on its next Open.
type Sessions struct {
	namespace string
	deps      Deps

	mu     sync.Mutex
	stores *lru.Cache
}

func NewSessions(namespace string, capacity int, deps Deps) (*Sessions, error) {
	if namespace == "" {
		namespace = DefaultCartKey
	}
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	logger := deps.Logger
	stores, err := lru.NewWithEvict(capacity, func(key, _ interface{}) {
		logger.Debug("session evicted", zap.Any("session_id", key))
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &Sessions{
		namespace: namespace,
		deps:      deps,
		stores:    stores,
	}, nil
}

func (s *Sessions) Key(sessionID string) string {
	return s.namespace + ":" + sessionID
}

// New starts a session with a fresh id.
func (s *Sessions) New(ctx context.Context) (string, *CartStore, error) {
	id := uuid.NewString()
	store, err := s.Open(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, store, nil
}

// Open returns the live store for sessionID, hydrating it on first use.
func (s *Sessions) Open(ctx context.Context, sessionID string) (*CartStore, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.stores.Get(sessionID); ok {
		return cached.(*CartStore), nil
	}

	store := NewCartStore(ctx, s.Key(sessionID), s.deps)
	store.sessionID = sessionID
	s.stores.Add(sessionID, store)

	s.deps.Logger.Debug("session opened", zap.String("session_id", sessionID))
	return store, nil
}

// Close drops the in-memory store. The persisted line items stay.
func (s *Sessions) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores.Remove(sessionID)
}

func (s *Sessions) Len() int {
	return s.stores.Len()
}
