package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrUnavailable is an exported constant or variable used by the session layer.
	ErrUnavailable = errors.New("session storage unavailable")
	// ErrQuotaExceeded is an exported constant or variable used by the session layer.
	ErrQuotaExceeded = errors.New("session storage quota exceeded")
)

// KV is the injected key-value port backing the session cache. Get reports
// presence explicitly so an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-process [KV] for tests and ephemeral clients.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string

	// MaxValueLen simulates a quota when > 0.
	MaxValueLen int
}

// NewMemoryKV describes the newmemorykv operation and its observable behavior.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	if m.MaxValueLen > 0 && len(value) > m.MaxValueLen {
		return ErrQuotaExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
