package repository

import (
	"context"
	"sync"
)

// MemoryMirror keeps the snapshot in process memory. Used by tests and by
// the "memory" backend for throwaway sessions.
type MemoryMirror struct {
	mu       sync.RWMutex
	data     []byte
	writes   int
	writeErr error
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

// NewMemoryMirrorWith seeds the mirror with an existing snapshot.
func NewMemoryMirrorWith(data []byte) *MemoryMirror {
	return &MemoryMirror{data: append([]byte(nil), data...)}
}

func (m *MemoryMirror) Name() string { return "memory" }

func (m *MemoryMirror) Read(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrSnapshotMissing
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryMirror) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

// FailWrites makes subsequent writes return err; nil restores normal
// operation.
func (m *MemoryMirror) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes counts successful writes.
func (m *MemoryMirror) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Bytes returns a copy of the current snapshot.
func (m *MemoryMirror) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}
