package storage

import (
	"context"
	"errors"
	"testing"

	"pooldex/internal/model"
)

func TestMemoryPoolIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	pool := &model.Pool{
		ID:          "wbnb:busd",
		TokenA:      "wbnb",
		TokenB:      "busd",
		ReserveA:    100,
		ReserveB:    400,
		ShareSupply: 200,
		Providers: map[string]*model.CouponRecord{
			"alice": {CouponID: 1, LPAmount: 200, LastUpdateEpoch: 1},
		},
	}
	if err := store.PutPool(ctx, pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}

	// Mutations of the original or of a loaded copy must not leak into the
	// store until the copy is put back.
	pool.ReserveA = 1
	loaded, err := store.GetPool(ctx, "wbnb:busd")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if loaded.ReserveA != 100 {
		t.Fatalf("stored pool shares state with caller: reserve_a = %d", loaded.ReserveA)
	}

	loaded.Providers["alice"].LPAmount = 5
	reloaded, err := store.GetPool(ctx, "wbnb:busd")
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if reloaded.Providers["alice"].LPAmount != 200 {
		t.Fatalf("stored record shares state with caller: lp = %d", reloaded.Providers["alice"].LPAmount)
	}
}

func TestMemoryPoolNotFound(t *testing.T) {
	store := NewMemory()
	if _, err := store.GetPool(context.Background(), "missing"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestMemoryEpochRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	epoch, err := store.LoadEpoch(ctx)
	if err != nil {
		t.Fatalf("load epoch: %v", err)
	}
	if epoch != 0 {
		t.Fatalf("initial epoch = %d, want 0", epoch)
	}

	if err := store.SaveEpoch(ctx, 7); err != nil {
		t.Fatalf("save epoch: %v", err)
	}

	source := NewStoreEpoch(store)
	epoch, err = source.Current(ctx)
	if err != nil {
		t.Fatalf("current epoch: %v", err)
	}
	if epoch != 7 {
		t.Fatalf("epoch = %d, want 7", epoch)
	}
}
