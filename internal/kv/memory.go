package kv

import "sync"

// MemoryBackend keeps values for the lifetime of the process only. It backs
// the session-scoped store.
type MemoryBackend struct {
	mu    sync.Mutex
	store map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		store: make(map[string][]byte),
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.store[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.store[key] = v
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.store, key)
	return nil
}
