package storage

import (
	"context"
	"errors"

	"pooldex/internal/model"
	"pooldex/internal/oracle"
)

// ErrPoolNotFound reports a lookup for a pool that was never created.
var ErrPoolNotFound = errors.New("pool not found")

// Store is the keyed persistent mapping from pool ID to pool state, plus the
// externally advanced epoch counter. Implementations persist a pool together
// with its coupon records as one atomic write.
type Store interface {
	// GetPool returns an isolated copy of the pool; mutating it has no
	// effect until the copy is put back.
	GetPool(ctx context.Context, id string) (*model.Pool, error)
	PutPool(ctx context.Context, pool *model.Pool) error
	LoadEpoch(ctx context.Context) (uint64, error)
	SaveEpoch(ctx context.Context, epoch uint64) error
}

// Journal is a sink for committed operation records.
type Journal interface {
	Append(record model.OpRecord) error
}

// storeEpoch adapts a Store's persisted counter to oracle.EpochSource.
type storeEpoch struct {
	store Store
}

// NewStoreEpoch exposes the store's epoch counter as an epoch source.
func NewStoreEpoch(store Store) oracle.EpochSource {
	return storeEpoch{store: store}
}

func (s storeEpoch) Current(ctx context.Context) (uint64, error) {
	return s.store.LoadEpoch(ctx)
}
