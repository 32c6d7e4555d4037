// Package oracle defines the time collaborators the pool engine reads from:
// the externally advanced reward epoch and the millisecond wall clock.
package oracle

import (
	"context"
	"time"
)

// EpochSource reports the current reward epoch, a monotonically
// non-decreasing counter advanced outside the pool engine.
type EpochSource interface {
	Current(ctx context.Context) (uint64, error)
}

// Clock supplies the millisecond timestamp used to mint coupon identifiers.
type Clock interface {
	NowMs() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// FixedEpoch is a constant epoch source for tests and offline runs.
type FixedEpoch uint64

func (e FixedEpoch) Current(context.Context) (uint64, error) {
	return uint64(e), nil
}

// FixedClock is a constant millisecond clock for tests.
type FixedClock uint64

func (c FixedClock) NowMs() uint64 {
	return uint64(c)
}
