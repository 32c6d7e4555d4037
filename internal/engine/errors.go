package engine

import "errors"

var (
	// ErrInvalidAmount rejects a zero asset or share amount where a positive
	// value is required.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidLiquidityOperation rejects a withdrawal or claim by a caller
	// with no tracked record, or a share amount the pool cannot satisfy.
	ErrInvalidLiquidityOperation = errors.New("invalid liquidity operation")

	// ErrIneligibleClaimWindow rejects a claim before the epoch has advanced
	// past the provider's last successful claim.
	ErrIneligibleClaimWindow = errors.New("coupon already claimed this epoch")

	// ErrInsufficientPoolShare rejects a claim by a provider below the
	// minimum ownership threshold.
	ErrInsufficientPoolShare = errors.New("pool share below claim threshold")

	// ErrAmountOverflow rejects arithmetic whose result cannot be
	// represented even after widening intermediates.
	ErrAmountOverflow = errors.New("amount overflows supported range")
)
