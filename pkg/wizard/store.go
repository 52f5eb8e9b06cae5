package wizard

import (
	"context"
	"sync"
)

// Store persists wizard states by session id.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps states in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[id]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	return st.Clone(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id string, st State) error {
	m.mu.Lock()
	m.states[id] = st.Clone()
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.states, id)
	m.mu.Unlock()
	return nil
}
