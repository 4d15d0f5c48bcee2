package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps the whole tree in process. Values are copied on the
// way in and out.
type MemoryBackend struct {
	mu   sync.RWMutex
	root map[string]interface{}
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{root: make(map[string]interface{})}
}

func (m *MemoryBackend) Get(ctx context.Context, path string) (interface{}, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := lookup(m.root, segments)
	if err != nil {
		return nil, err
	}
	return Normalize(node)
}

func (m *MemoryBackend) Set(ctx context.Context, path string, value interface{}) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	assign(m.root, segments, normalized)
	return nil
}

// Roots lists the top level node names in sorted order.
func (m *MemoryBackend) Roots(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roots := make([]string, 0, len(m.root))
	for k := range m.root {
		roots = append(roots, k)
	}
	sort.Strings(roots)
	return roots, nil
}
