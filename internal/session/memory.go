package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps sessions in process memory. State is lost on restart.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*State)}
}

func (b *MemoryBackend) Load(_ context.Context, id string) (*State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.sessions[id]
	if !ok {
		return nil, nil
	}
	return st.clone(), nil
}

func (b *MemoryBackend) Save(_ context.Context, id string, state *State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[id] = state.clone()
	return nil
}

func (b *MemoryBackend) Update(_ context.Context, id string, fn func(*State)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := &State{}
	if cur, ok := b.sessions[id]; ok {
		st = cur.clone()
	}
	fn(st)
	if st.Empty() {
		delete(b.sessions, id)
		return nil
	}
	b.sessions[id] = st
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
	return nil
}

func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}
