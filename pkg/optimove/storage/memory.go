package storage

import "sync"

// MemoryStore is an in-memory settings store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryStore creates a new in-memory settings store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// GetString implements Store.
func (m *MemoryStore) GetString(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	value, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// SetString implements Store.
func (m *MemoryStore) SetString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.data[key] = value
	return nil
}

// GetBool implements Store.
func (m *MemoryStore) GetBool(key string) (bool, error) {
	raw, err := m.GetString(key)
	if err != nil {
		return false, err
	}
	return decodeBool(raw)
}

// SetBool implements Store.
func (m *MemoryStore) SetBool(key string, value bool) error {
	return m.SetString(key, encodeBool(value))
}

// GetInt64 implements Store.
func (m *MemoryStore) GetInt64(key string) (int64, error) {
	raw, err := m.GetString(key)
	if err != nil {
		return 0, err
	}
	return decodeInt64(raw)
}

// SetInt64 implements Store.
func (m *MemoryStore) SetInt64(key string, value int64) error {
	return m.SetString(key, encodeInt64(value))
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored settings. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
