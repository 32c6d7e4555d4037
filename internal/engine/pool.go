// Package engine implements the state transitions of a two-asset
// constant-product pool: share issuance and redemption, swap pricing, and the
// per-provider coupon bookkeeping gated on pool-share ownership.
//
// Every operation takes an exclusive reference to one pool, validates all
// preconditions before touching any state, and either commits every effect or
// leaves the pool untouched. Serialization of calls against a single pool is
// the caller's responsibility.
package engine

import (
	"strings"

	"pooldex/internal/model"
)

const (
	// SwapFactorScale is the fixed-point scale of SwapFactor quotes.
	SwapFactorScale = 10_000

	// MaxClaimShareRatio bounds claim eligibility: a provider may claim only
	// while shareSupply/lpAmount stays below this ratio, i.e. while holding
	// at least 1/100000 of the outstanding shares.
	MaxClaimShareRatio = 100_000
)

// AddLiquidityResult reports the effects of one liquidity deposit.
type AddLiquidityResult struct {
	UsedA        uint64
	UsedB        uint64
	Minted       uint64
	RefundSide   model.Side
	RefundAmount uint64
}

// RemoveLiquidityResult reports the assets returned for burned shares.
type RemoveLiquidityResult struct {
	AmountA uint64
	AmountB uint64
}

// shareTotal is the share count backing the given reserves. The product of
// two 32-bit integer roots cannot overflow uint64.
func shareTotal(reserveA, reserveB uint64) uint64 {
	return isqrt(reserveA) * isqrt(reserveB)
}

// CreatePool builds a pool from the creator's initial deposit. Initial shares
// scale with the geometric mean of both reserves so the share price does not
// depend on the deposit ratio the creator picked. The creator's coupon record
// is seeded with an identifier minted from the millisecond clock.
func CreatePool(tokenA, tokenB string, amountA, amountB uint64, creator string, nowMs, epoch uint64) (*model.Pool, uint64, error) {
	if amountA == 0 || amountB == 0 {
		return nil, 0, ErrInvalidAmount
	}

	minted := shareTotal(amountA, amountB)
	if minted == 0 {
		return nil, 0, ErrInvalidLiquidityOperation
	}

	pool := &model.Pool{
		ID:          model.PairKey(tokenA, tokenB),
		TokenA:      strings.ToLower(tokenA),
		TokenB:      strings.ToLower(tokenB),
		ReserveA:    amountA,
		ReserveB:    amountB,
		ShareSupply: minted,
		Providers: map[string]*model.CouponRecord{
			strings.ToLower(creator): {
				CouponID:        nowMs,
				LPAmount:        minted,
				LastUpdateEpoch: epoch,
			},
		},
	}
	return pool, minted, nil
}

// AddLiquidity deposits both assets while preserving the pool's reserve
// ratio. The side with the larger reserve/amount scale factor limits the
// deposit; the excess of the other side is refunded. Shares minted keep the
// supply equal to the share total of the post-deposit reserves.
func AddLiquidity(pool *model.Pool, provider string, amountA, amountB, nowMs, epoch uint64) (AddLiquidityResult, error) {
	if amountA == 0 || amountB == 0 {
		return AddLiquidityResult{}, ErrInvalidAmount
	}

	scaleA := pool.ReserveA / amountA
	scaleB := pool.ReserveB / amountB

	res := AddLiquidityResult{UsedA: amountA, UsedB: amountB}
	switch {
	case scaleA > scaleB:
		res.UsedB = pool.ReserveB / scaleA
		res.RefundSide = model.SideB
		res.RefundAmount = amountB - res.UsedB
	case scaleB > scaleA:
		res.UsedA = pool.ReserveA / scaleB
		res.RefundSide = model.SideA
		res.RefundAmount = amountA - res.UsedA
	}

	newReserveA, err := addChecked(pool.ReserveA, res.UsedA)
	if err != nil {
		return AddLiquidityResult{}, err
	}
	newReserveB, err := addChecked(pool.ReserveB, res.UsedB)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	newTotal := shareTotal(newReserveA, newReserveB)
	if newTotal <= pool.ShareSupply {
		// Integer roots floor away deposits too small to move the share
		// total; accepting them would take funds and mint nothing.
		return AddLiquidityResult{}, ErrInvalidLiquidityOperation
	}
	res.Minted = newTotal - pool.ShareSupply

	pool.ReserveA = newReserveA
	pool.ReserveB = newReserveB
	pool.ShareSupply = newTotal

	key := strings.ToLower(provider)
	rec := pool.Providers[key]
	if rec == nil {
		if pool.Providers == nil {
			pool.Providers = make(map[string]*model.CouponRecord)
		}
		rec = &model.CouponRecord{CouponID: nowMs}
		pool.Providers[key] = rec
	}
	rec.LPAmount += res.Minted
	rec.LastUpdateEpoch = epoch

	return res, nil
}

// RemoveLiquidity burns shareAmount of the caller's tracked shares and pays
// out both reserves pro rata, using full-precision multiply-then-divide. The
// caller's record is deleted once its tracked balance reaches zero.
func RemoveLiquidity(pool *model.Pool, provider string, shareAmount uint64) (RemoveLiquidityResult, error) {
	if shareAmount == 0 {
		return RemoveLiquidityResult{}, ErrInvalidAmount
	}

	key := strings.ToLower(provider)
	rec := pool.Providers[key]
	if rec == nil {
		return RemoveLiquidityResult{}, ErrInvalidLiquidityOperation
	}
	if shareAmount > rec.LPAmount || shareAmount > pool.ShareSupply {
		return RemoveLiquidityResult{}, ErrInvalidLiquidityOperation
	}

	amountA, err := mulDiv(pool.ReserveA, shareAmount, pool.ShareSupply)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	amountB, err := mulDiv(pool.ReserveB, shareAmount, pool.ShareSupply)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	pool.ReserveA -= amountA
	pool.ReserveB -= amountB
	pool.ShareSupply -= shareAmount
	rec.LPAmount -= shareAmount
	if rec.LPAmount == 0 {
		delete(pool.Providers, key)
	}

	return RemoveLiquidityResult{AmountA: amountA, AmountB: amountB}, nil
}

// Swap trades amountIn of the input side's asset for the other asset under
// the constant-product rule, with the product widened to 128 bits before the
// division. No fee is taken; the full input is added to the input reserve.
func Swap(pool *model.Pool, inputSide model.Side, amountIn uint64) (uint64, error) {
	if amountIn == 0 {
		return 0, ErrInvalidAmount
	}

	reserveIn := pool.Reserve(inputSide)
	reserveOut := pool.Reserve(inputSide.Other())
	if reserveIn == 0 || reserveOut == 0 {
		// A fully exited pool has nothing to price against.
		return 0, ErrInvalidLiquidityOperation
	}

	newReserveIn, err := addChecked(reserveIn, amountIn)
	if err != nil {
		return 0, err
	}
	newReserveOut, err := mulDiv(reserveIn, reserveOut, newReserveIn)
	if err != nil {
		return 0, err
	}
	if newReserveOut == 0 {
		// Flooring can round the retained reserve to zero for inputs far
		// larger than the pool; a swap must never drain a side.
		newReserveOut = 1
	}
	amountOut := reserveOut - newReserveOut

	if inputSide == model.SideA {
		pool.ReserveA = newReserveIn
		pool.ReserveB = newReserveOut
	} else {
		pool.ReserveA = newReserveOut
		pool.ReserveB = newReserveIn
	}
	return amountOut, nil
}

// SwapFactor quotes the pool price as SwapFactorScale * reserveA / reserveB.
// Read-only.
func SwapFactor(pool *model.Pool) (uint64, error) {
	if pool.ReserveA == 0 || pool.ReserveB == 0 {
		return 0, ErrInvalidLiquidityOperation
	}
	return mulDiv(pool.ReserveA, SwapFactorScale, pool.ReserveB)
}

// ClaimCoupon issues a reward receipt to a tracked provider holding at least
// 1/MaxClaimShareRatio of the share supply, at most once per epoch. The only
// pool mutation is the provider's epoch stamp.
func ClaimCoupon(pool *model.Pool, provider string, lotteryType uint8, epoch uint64) (model.Coupon, error) {
	rec := pool.Record(provider)
	if rec == nil || rec.LPAmount == 0 || pool.ShareSupply == 0 {
		return model.Coupon{}, ErrInvalidLiquidityOperation
	}
	if pool.ShareSupply/rec.LPAmount >= MaxClaimShareRatio {
		return model.Coupon{}, ErrInsufficientPoolShare
	}
	if rec.LastUpdateEpoch >= epoch {
		return model.Coupon{}, ErrIneligibleClaimWindow
	}

	rec.LastUpdateEpoch = epoch
	return model.NewCoupon(rec.CouponID, lotteryType, rec.LPAmount, epoch), nil
}
