package storage

import (
	"context"
	"sync"

	"pooldex/internal/model"
)

// Memory is an in-process Store for tests and single-run tools. Pools are
// deep-copied on the way in and out so callers never share state with the
// store.
type Memory struct {
	mu    sync.Mutex
	pools map[string]*model.Pool
	epoch uint64
}

func NewMemory() *Memory {
	return &Memory{pools: make(map[string]*model.Pool)}
}

func (m *Memory) GetPool(_ context.Context, id string) (*model.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[id]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool.Clone(), nil
}

func (m *Memory) PutPool(_ context.Context, pool *model.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[pool.ID] = pool.Clone()
	return nil
}

func (m *Memory) LoadEpoch(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch, nil
}

func (m *Memory) SaveEpoch(_ context.Context, epoch uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch = epoch
	return nil
}
