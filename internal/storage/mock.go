package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/pkg/entity"
	"github.com/jwebster45206/encounter-engine/pkg/store"
)

// MockStorage keeps snapshots in memory. It backs the "memory" backend and
// tests.
type MockStorage struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*store.Snapshot
	saves     int
	pingError error
	saveError error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{snapshots: make(map[uuid.UUID]*store.Snapshot)}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every save fail with err until cleared with nil.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Saves returns how many snapshots were saved successfully.
func (m *MockStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSnapshot(ctx context.Context, session uuid.UUID, snap *store.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.snapshots[session] = copySnapshot(snap)
	m.saves++
	return nil
}

func (m *MockStorage) LoadSnapshot(ctx context.Context, session uuid.UUID) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[session]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snap), nil
}

func (m *MockStorage) DeleteSnapshot(ctx context.Context, session uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, session)
	return nil
}

func (m *MockStorage) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(m.snapshots))
	for id := range m.snapshots {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return out, nil
}

func copySnapshot(s *store.Snapshot) *store.Snapshot {
	out := &store.Snapshot{Version: s.Version, Entities: make([]*entity.Entity, len(s.Entities))}
	for i, e := range s.Entities {
		out.Entities[i] = e.Clone()
	}
	return out
}
