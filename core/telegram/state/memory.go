package state

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Values are lost on restart.
type Memory[T any] struct {
	mu     sync.RWMutex
	values map[int64]T
}

// NewMemory constructs an empty in-memory store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{values: make(map[int64]T)}
}

// Get returns a copy of the stored value.
func (m *Memory[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[userID]
	return v, ok, nil
}

// Put replaces the value for userID.
func (m *Memory[T]) Put(_ context.Context, userID int64, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[userID] = v
	return nil
}

// Delete drops the value for userID.
func (m *Memory[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, userID)
	return nil
}

// Len returns the number of active entries.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
