package objstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryGateway is a thread-safe in-memory Gateway for tests and local runs.
type MemoryGateway struct {
	mu         sync.RWMutex
	containers map[string]map[string][]byte
	types      map[string]string
	closed     bool
}

// NewMemoryGateway creates an empty in-memory Gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		containers: make(map[string]map[string][]byte),
		types:      make(map[string]string),
	}
}

func (m *MemoryGateway) EnsureContainer(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, fmt.Errorf("%w: gateway closed", ErrStoreUnavailable)
	}
	if _, ok := m.containers[name]; ok {
		return false, nil
	}
	m.containers[name] = make(map[string][]byte)
	return true, nil
}

func (m *MemoryGateway) Put(_ context.Context, container, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: gateway closed", ErrStore)
	}
	objects, ok := m.containers[container]
	if !ok {
		return fmt.Errorf("%w: no such container %s", ErrStore, container)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	objects[key] = cp
	m.types[container+"/"+key] = contentType
	return nil
}

func (m *MemoryGateway) Get(_ context.Context, container, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("%w: gateway closed", ErrStore)
	}
	d, ok := m.containers[container][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, container, key)
	}
	cp := make([]byte, len(d))
	copy(cp, d)
	return cp, nil
}

// Containers returns the container names in sorted order.
func (m *MemoryGateway) Containers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.containers))
	for name := range m.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContentType returns the content type recorded for an object.
func (m *MemoryGateway) ContentType(container, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[container+"/"+key]
}

func (m *MemoryGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure MemoryGateway implements Gateway.
var _ Gateway = (*MemoryGateway)(nil)
