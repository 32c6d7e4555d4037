// Package service is the runtime around the pool engine: it serializes calls
// per pool, loads state from the keyed store, runs one engine transition, and
// commits pool state, custody transfers, and the operation journal together.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pooldex/internal/custody"
	"pooldex/internal/engine"
	"pooldex/internal/model"
	"pooldex/internal/oracle"
	"pooldex/internal/storage"
)

// Service executes pool operations against a Store.
type Service struct {
	store     storage.Store
	custodian custody.Custodian
	journal   storage.Journal
	epochs    oracle.EpochSource
	clock     oracle.Clock
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Service. journal may be nil; a nil logger or clock falls back
// to a no-op logger and the system clock.
func New(store storage.Store, custodian custody.Custodian, journal storage.Journal, epochs oracle.EpochSource, clock oracle.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = oracle.SystemClock{}
	}
	return &Service{
		store:     store,
		custodian: custodian,
		journal:   journal,
		epochs:    epochs,
		clock:     clock,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// ParseAddress validates and normalizes a hex account or token address.
func ParseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address: %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// orientPair puts a token pair in its stored order. flipped reports whether
// the caller listed the tokens the other way round, so amounts and sides can
// be mapped between the caller's orientation and the pool's.
func orientPair(tokenA, tokenB common.Address) (common.Address, common.Address, bool) {
	if strings.ToLower(tokenB.Hex()) < strings.ToLower(tokenA.Hex()) {
		return tokenB, tokenA, true
	}
	return tokenA, tokenB, false
}

// lockPool serializes operations against one pool. The engine requires
// exactly one in-flight call per pool; distinct pools proceed concurrently.
func (s *Service) lockPool(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// CreatePool creates the pool for a token pair from the creator's initial
// deposit and returns the shares minted to the creator.
func (s *Service) CreatePool(ctx context.Context, tokenA, tokenB common.Address, amountA, amountB uint64, creator common.Address) (uint64, error) {
	if tokenA == tokenB {
		return 0, fmt.Errorf("pool requires two distinct tokens")
	}
	tokenA, tokenB, flipped := orientPair(tokenA, tokenB)
	if flipped {
		amountA, amountB = amountB, amountA
	}
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	defer s.lockPool(id)()

	// A pool whose liquidity was fully withdrawn may be created anew.
	if existing, err := s.store.GetPool(ctx, id); err == nil && existing.ShareSupply > 0 {
		return 0, fmt.Errorf("pool %s already exists", id)
	} else if err != nil && !errors.Is(err, storage.ErrPoolNotFound) {
		return 0, fmt.Errorf("load pool: %w", err)
	}

	epoch, err := s.epochs.Current(ctx)
	if err != nil {
		return 0, fmt.Errorf("read epoch: %w", err)
	}

	pool, minted, err := engine.CreatePool(tokenA.Hex(), tokenB.Hex(), amountA, amountB, creator.Hex(), s.clock.NowMs(), epoch)
	if err != nil {
		return 0, err
	}

	if err := s.depositBoth(ctx, pool, creator.Hex(), amountA, amountB); err != nil {
		return 0, err
	}

	if err := s.store.PutPool(ctx, pool); err != nil {
		return 0, fmt.Errorf("store pool: %w", err)
	}

	s.appendJournal(model.OpRecord{
		Op:           "create_pool",
		PoolID:       pool.ID,
		Actor:        creator.Hex(),
		AmountA:      amountA,
		AmountB:      amountB,
		SharesMinted: minted,
		Epoch:        epoch,
	})
	s.logger.Info("pool created",
		zap.String("pool", pool.ID),
		zap.Uint64("reserve_a", pool.ReserveA),
		zap.Uint64("reserve_b", pool.ReserveB),
		zap.Uint64("minted", minted),
	)
	return minted, nil
}

// AddLiquidity deposits liquidity on both sides and refunds the excess of the
// non-limiting side.
func (s *Service) AddLiquidity(ctx context.Context, tokenA, tokenB common.Address, amountA, amountB uint64, provider common.Address) (engine.AddLiquidityResult, error) {
	tokenA, tokenB, flipped := orientPair(tokenA, tokenB)
	if flipped {
		amountA, amountB = amountB, amountA
	}
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	defer s.lockPool(id)()

	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return engine.AddLiquidityResult{}, fmt.Errorf("load pool: %w", err)
	}
	epoch, err := s.epochs.Current(ctx)
	if err != nil {
		return engine.AddLiquidityResult{}, fmt.Errorf("read epoch: %w", err)
	}

	res, err := engine.AddLiquidity(pool, provider.Hex(), amountA, amountB, s.clock.NowMs(), epoch)
	if err != nil {
		return engine.AddLiquidityResult{}, err
	}

	if err := s.depositBoth(ctx, pool, provider.Hex(), amountA, amountB); err != nil {
		return engine.AddLiquidityResult{}, err
	}
	if res.RefundAmount > 0 {
		if err := s.custodian.Withdraw(ctx, pool.Token(res.RefundSide), provider.Hex(), res.RefundAmount); err != nil {
			return engine.AddLiquidityResult{}, fmt.Errorf("refund: %w", err)
		}
	}

	if err := s.store.PutPool(ctx, pool); err != nil {
		return engine.AddLiquidityResult{}, fmt.Errorf("store pool: %w", err)
	}

	record := model.OpRecord{
		Op:           "add_liquidity",
		PoolID:       pool.ID,
		Actor:        provider.Hex(),
		AmountA:      res.UsedA,
		AmountB:      res.UsedB,
		SharesMinted: res.Minted,
		Epoch:        epoch,
	}
	if res.RefundAmount > 0 {
		record.RefundSide = res.RefundSide.String()
		record.RefundAmount = res.RefundAmount
	}
	s.appendJournal(record)
	s.logger.Info("liquidity added",
		zap.String("pool", pool.ID),
		zap.String("provider", provider.Hex()),
		zap.Uint64("minted", res.Minted),
		zap.Uint64("refund", res.RefundAmount),
	)
	if flipped {
		res.UsedA, res.UsedB = res.UsedB, res.UsedA
		res.RefundSide = res.RefundSide.Other()
	}
	return res, nil
}

// RemoveLiquidity burns the provider's shares and withdraws both assets to
// the provider.
func (s *Service) RemoveLiquidity(ctx context.Context, tokenA, tokenB common.Address, shareAmount uint64, provider common.Address) (engine.RemoveLiquidityResult, error) {
	_, _, flipped := orientPair(tokenA, tokenB)
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	defer s.lockPool(id)()

	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return engine.RemoveLiquidityResult{}, fmt.Errorf("load pool: %w", err)
	}

	res, err := engine.RemoveLiquidity(pool, provider.Hex(), shareAmount)
	if err != nil {
		return engine.RemoveLiquidityResult{}, err
	}

	if res.AmountA > 0 {
		if err := s.custodian.Withdraw(ctx, pool.TokenA, provider.Hex(), res.AmountA); err != nil {
			return engine.RemoveLiquidityResult{}, fmt.Errorf("withdraw token a: %w", err)
		}
	}
	if res.AmountB > 0 {
		if err := s.custodian.Withdraw(ctx, pool.TokenB, provider.Hex(), res.AmountB); err != nil {
			return engine.RemoveLiquidityResult{}, fmt.Errorf("withdraw token b: %w", err)
		}
	}

	if err := s.store.PutPool(ctx, pool); err != nil {
		return engine.RemoveLiquidityResult{}, fmt.Errorf("store pool: %w", err)
	}

	s.appendJournal(model.OpRecord{
		Op:           "remove_liquidity",
		PoolID:       pool.ID,
		Actor:        provider.Hex(),
		AmountA:      res.AmountA,
		AmountB:      res.AmountB,
		SharesBurned: shareAmount,
	})
	s.logger.Info("liquidity removed",
		zap.String("pool", pool.ID),
		zap.String("provider", provider.Hex()),
		zap.Uint64("burned", shareAmount),
		zap.Uint64("amount_a", res.AmountA),
		zap.Uint64("amount_b", res.AmountB),
	)
	if flipped {
		res.AmountA, res.AmountB = res.AmountB, res.AmountA
	}
	return res, nil
}

// Swap trades amountIn on the given input side and withdraws the output to
// the trader.
func (s *Service) Swap(ctx context.Context, tokenA, tokenB common.Address, inputSide model.Side, amountIn uint64, trader common.Address) (uint64, error) {
	_, _, flipped := orientPair(tokenA, tokenB)
	if flipped {
		// The caller's sides follow the order they listed the tokens in.
		inputSide = inputSide.Other()
	}
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	defer s.lockPool(id)()

	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load pool: %w", err)
	}

	tokenIn := pool.Token(inputSide)
	tokenOut := pool.Token(inputSide.Other())

	amountOut, err := engine.Swap(pool, inputSide, amountIn)
	if err != nil {
		return 0, err
	}

	if err := s.custodian.Deposit(ctx, tokenIn, trader.Hex(), amountIn); err != nil {
		return 0, fmt.Errorf("deposit input: %w", err)
	}
	if err := s.custodian.Withdraw(ctx, tokenOut, trader.Hex(), amountOut); err != nil {
		return 0, fmt.Errorf("withdraw output: %w", err)
	}

	if err := s.store.PutPool(ctx, pool); err != nil {
		return 0, fmt.Errorf("store pool: %w", err)
	}

	s.appendJournal(model.OpRecord{
		Op:        "swap",
		PoolID:    pool.ID,
		Actor:     trader.Hex(),
		InputSide: inputSide.String(),
		AmountIn:  amountIn,
		AmountOut: amountOut,
	})
	s.logger.Info("swap executed",
		zap.String("pool", pool.ID),
		zap.String("input_side", inputSide.String()),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("amount_out", amountOut),
	)
	return amountOut, nil
}

// ClaimCoupon issues a coupon to an eligible provider.
func (s *Service) ClaimCoupon(ctx context.Context, tokenA, tokenB common.Address, lotteryType uint8, provider common.Address) (model.Coupon, error) {
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	defer s.lockPool(id)()

	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return model.Coupon{}, fmt.Errorf("load pool: %w", err)
	}
	epoch, err := s.epochs.Current(ctx)
	if err != nil {
		return model.Coupon{}, fmt.Errorf("read epoch: %w", err)
	}

	coupon, err := engine.ClaimCoupon(pool, provider.Hex(), lotteryType, epoch)
	if err != nil {
		return model.Coupon{}, err
	}

	if err := s.store.PutPool(ctx, pool); err != nil {
		return model.Coupon{}, fmt.Errorf("store pool: %w", err)
	}

	s.appendJournal(model.OpRecord{
		Op:          "claim_coupon",
		PoolID:      pool.ID,
		Actor:       provider.Hex(),
		CouponID:    coupon.ID(),
		LotteryType: coupon.LotteryType(),
		Epoch:       coupon.Epoch(),
	})
	s.logger.Info("coupon claimed",
		zap.String("pool", pool.ID),
		zap.String("provider", provider.Hex()),
		zap.Uint64("coupon_id", coupon.ID()),
		zap.Uint64("epoch", coupon.Epoch()),
	)
	return coupon, nil
}

// PoolView is a read-only snapshot of pool state plus the price quote.
type PoolView struct {
	ID          string `json:"id"`
	TokenA      string `json:"token_a"`
	TokenB      string `json:"token_b"`
	ReserveA    uint64 `json:"reserve_a"`
	ReserveB    uint64 `json:"reserve_b"`
	ShareSupply uint64 `json:"share_supply"`
	SwapFactor  uint64 `json:"swap_factor"`
	Providers   int    `json:"providers"`
}

// Quote reads pool state and the fixed-point swap factor. No side effects.
func (s *Service) Quote(ctx context.Context, tokenA, tokenB common.Address) (PoolView, error) {
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())

	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return PoolView{}, fmt.Errorf("load pool: %w", err)
	}
	factor, err := engine.SwapFactor(pool)
	if err != nil {
		return PoolView{}, err
	}
	return PoolView{
		ID:          pool.ID,
		TokenA:      pool.TokenA,
		TokenB:      pool.TokenB,
		ReserveA:    pool.ReserveA,
		ReserveB:    pool.ReserveB,
		ShareSupply: pool.ShareSupply,
		SwapFactor:  factor,
		Providers:   len(pool.Providers),
	}, nil
}

// depositBoth moves both sides of a two-asset deposit into custody. If the
// second leg fails the first is withdrawn back, so a rejected operation
// leaves no custody effect behind.
func (s *Service) depositBoth(ctx context.Context, pool *model.Pool, from string, amountA, amountB uint64) error {
	if err := s.custodian.Deposit(ctx, pool.TokenA, from, amountA); err != nil {
		return fmt.Errorf("deposit token a: %w", err)
	}
	if err := s.custodian.Deposit(ctx, pool.TokenB, from, amountB); err != nil {
		if undoErr := s.custodian.Withdraw(ctx, pool.TokenA, from, amountA); undoErr != nil {
			s.logger.Error("custody unwind failed",
				zap.Error(undoErr),
				zap.String("pool", pool.ID),
				zap.String("token", pool.TokenA),
			)
		}
		return fmt.Errorf("deposit token b: %w", err)
	}
	return nil
}

func (s *Service) appendJournal(record model.OpRecord) {
	if s.journal == nil {
		return
	}
	record.RecordedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.journal.Append(record); err != nil {
		s.logger.Warn("journal append failed", zap.Error(err), zap.String("op", record.Op))
	}
}
