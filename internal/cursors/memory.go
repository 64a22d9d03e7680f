package cursors

import (
	"context"
	"maps"
	"sync"
)

// Memory is a CursorStore that lives as long as the process.
type Memory struct {
	mu      sync.RWMutex
	cursors map[string]int64
}

func (m *Memory) Load(_ context.Context, key string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cursor, ok := m.cursors[key]
	return cursor, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, cursor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursors == nil {
		m.cursors = map[string]int64{}
	}
	m.cursors[key] = cursor

	return nil
}

func (m *Memory) snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.cursors)
}
