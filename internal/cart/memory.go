package cart

import (
	"context"
	"sync"
)

// MemoryStore is the single-process store used when no Redis is configured.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]Cart)}
}

func (m *MemoryStore) Load(_ context.Context, sid string) (Cart, error) {
	if sid == "" {
		return Cart{}, ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.carts[sid]
	// hand out a copy so callers can't mutate stored lines
	c.Lines = append([]Line(nil), c.Lines...)
	return c, nil
}

func (m *MemoryStore) Save(_ context.Context, sid string, c Cart) error {
	if sid == "" {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Empty() {
		delete(m.carts, sid)
		return nil
	}
	m.carts[sid] = Cart{Lines: append([]Line(nil), c.Lines...)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sid)
	return nil
}
