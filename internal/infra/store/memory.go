package store

import (
	"context"
	"sync"

	"stockwatch/internal/domain/stock"
)

var _ stock.StateStore = (*MemoryStore)(nil)

// MemoryStore keeps state in process memory. It backs dry runs and tests;
// nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	prefix string
	states map[memoryKey]stock.StoredState
}

type memoryKey struct {
	ctx       string
	productID string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix: prefix,
		states: make(map[memoryKey]stock.StoredState),
	}
}

// Get returns the stored state of a product.
func (s *MemoryStore) Get(ctx context.Context, sc stock.StoreContext, productID string) (stock.StoredState, bool, error) {
	if err := ctx.Err(); err != nil {
		return stock.StoredState{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[s.key(sc, productID)]
	return st, ok, nil
}

// Put overwrites the state of every given product under one lock.
func (s *MemoryStore) Put(ctx context.Context, sc stock.StoreContext, updates ...stock.StateUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		s.states[s.key(sc, u.ProductID)] = u.State
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) key(sc stock.StoreContext, productID string) memoryKey {
	return memoryKey{ctx: contextKey(s.prefix, sc), productID: productID}
}
