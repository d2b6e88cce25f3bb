package store

import "sync"

// MemoryBackend keeps the aggregate document in process memory. It is the
// fallback when the SQLite database cannot be opened and the backend of
// choice in tests. Nothing survives the process.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	found    bool
	revision int64
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{}
}

// Load implements Backend.
func (m *MemoryBackend) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.found {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.found = true
	m.revision++
	return nil
}

// Revision implements Backend.
func (m *MemoryBackend) Revision() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision, nil
}

// Reset implements Backend.
func (m *MemoryBackend) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.found = false
	m.revision = 0
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
