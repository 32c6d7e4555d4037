package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"pooldex/internal/custody"
	"pooldex/internal/engine"
	"pooldex/internal/model"
	"pooldex/internal/oracle"
	"pooldex/internal/storage"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	alice  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const testMs = 1700000000000

func newTestService(t *testing.T, journal storage.Journal) (*Service, *storage.Memory, *custody.Ledger) {
	t.Helper()
	store := storage.NewMemory()
	if err := store.SaveEpoch(context.Background(), 1); err != nil {
		t.Fatalf("seed epoch: %v", err)
	}
	ledger := custody.NewLedger()
	svc := New(store, ledger, journal, storage.NewStoreEpoch(store), oracle.FixedClock(testMs), nil)
	return svc, store, ledger
}

func createTestPool(t *testing.T, svc *Service, ledger *custody.Ledger) {
	t.Helper()
	ledger.Mint(alice.Hex(), tokenA.Hex(), 100)
	ledger.Mint(alice.Hex(), tokenB.Hex(), 400)
	minted, err := svc.CreatePool(context.Background(), tokenA, tokenB, 100, 400, alice)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if minted != 200 {
		t.Fatalf("minted = %d, want 200", minted)
	}
}

func TestCreatePoolAndQuote(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	if got := ledger.Custodied(tokenA.Hex()); got != 100 {
		t.Fatalf("custodied token a = %d, want 100", got)
	}
	if got := ledger.Custodied(tokenB.Hex()); got != 400 {
		t.Fatalf("custodied token b = %d, want 400", got)
	}
	if got := ledger.Balance(alice.Hex(), tokenA.Hex()); got != 0 {
		t.Fatalf("creator keeps %d of token a", got)
	}

	view, err := svc.Quote(context.Background(), tokenA, tokenB)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if view.ReserveA != 100 || view.ReserveB != 400 || view.ShareSupply != 200 {
		t.Fatalf("view = %+v", view)
	}
	if view.SwapFactor != 2500 {
		t.Fatalf("swap factor = %d, want 2500", view.SwapFactor)
	}
	if view.Providers != 1 {
		t.Fatalf("providers = %d, want 1", view.Providers)
	}
}

func TestCreatePoolDuplicate(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	ledger.Mint(alice.Hex(), tokenA.Hex(), 100)
	ledger.Mint(alice.Hex(), tokenB.Hex(), 400)
	if _, err := svc.CreatePool(context.Background(), tokenA, tokenB, 100, 400, alice); err == nil {
		t.Fatalf("expected error for duplicate pool")
	}
}

func TestReversedTokenOrderAddressesSamePool(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)
	ctx := context.Background()

	ledger.Mint(alice.Hex(), tokenA.Hex(), 100)
	ledger.Mint(alice.Hex(), tokenB.Hex(), 400)
	if _, err := svc.CreatePool(ctx, tokenB, tokenA, 400, 100, alice); err == nil {
		t.Fatalf("expected duplicate error when the pair is listed in reverse")
	}

	straight, err := svc.Quote(ctx, tokenA, tokenB)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	reversed, err := svc.Quote(ctx, tokenB, tokenA)
	if err != nil {
		t.Fatalf("reversed quote: %v", err)
	}
	if !reflect.DeepEqual(straight, reversed) {
		t.Fatalf("quotes diverge: %+v != %+v", straight, reversed)
	}
}

func TestReversedTokenOrderMapsAmountsAndSides(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)
	ctx := context.Background()

	// Bob lists the pair backwards: his "token a" is tokenB.
	ledger.Mint(bob.Hex(), tokenA.Hex(), 50)
	ledger.Mint(bob.Hex(), tokenB.Hex(), 400)
	res, err := svc.AddLiquidity(ctx, tokenB, tokenA, 400, 50, bob)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if res.Minted != 88 {
		t.Fatalf("minted = %d, want 88", res.Minted)
	}
	if res.UsedA != 200 || res.UsedB != 50 {
		t.Fatalf("used = (%d, %d), want (200, 50) in bob's order", res.UsedA, res.UsedB)
	}
	if res.RefundSide != model.SideA || res.RefundAmount != 200 {
		t.Fatalf("refund = %d on side %s, want 200 on side a in bob's order", res.RefundAmount, res.RefundSide)
	}
	if got := ledger.Balance(bob.Hex(), tokenB.Hex()); got != 200 {
		t.Fatalf("refunded balance = %d, want 200", got)
	}
}

func TestSwapReversedTokenOrder(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	// Carol lists the pair backwards, so her side b is tokenA and this
	// trades tokenA in for tokenB.
	ledger.Mint(carol.Hex(), tokenA.Hex(), 10)
	out, err := svc.Swap(context.Background(), tokenB, tokenA, model.SideB, 10, carol)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out != 37 {
		t.Fatalf("output = %d, want 37", out)
	}
	if got := ledger.Balance(carol.Hex(), tokenB.Hex()); got != 37 {
		t.Fatalf("carol token b = %d, want 37", got)
	}
}

func TestCreatePoolSameToken(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if _, err := svc.CreatePool(context.Background(), tokenA, tokenA, 100, 400, alice); err == nil {
		t.Fatalf("expected error for identical tokens")
	}
}

func TestAddLiquidityRefundFlow(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	ledger.Mint(bob.Hex(), tokenA.Hex(), 50)
	ledger.Mint(bob.Hex(), tokenB.Hex(), 400)

	res, err := svc.AddLiquidity(context.Background(), tokenA, tokenB, 50, 400, bob)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if res.Minted != 88 {
		t.Fatalf("minted = %d, want 88", res.Minted)
	}
	if res.RefundSide != model.SideB || res.RefundAmount != 200 {
		t.Fatalf("refund = %d on side %s, want 200 on side b", res.RefundAmount, res.RefundSide)
	}

	if got := ledger.Balance(bob.Hex(), tokenB.Hex()); got != 200 {
		t.Fatalf("refunded balance = %d, want 200", got)
	}
	if got := ledger.Custodied(tokenA.Hex()); got != 150 {
		t.Fatalf("custodied token a = %d, want 150", got)
	}
	if got := ledger.Custodied(tokenB.Hex()); got != 600 {
		t.Fatalf("custodied token b = %d, want 600", got)
	}
}

func TestRemoveLiquidityFlow(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	res, err := svc.RemoveLiquidity(context.Background(), tokenA, tokenB, 50, alice)
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if res.AmountA != 25 || res.AmountB != 100 {
		t.Fatalf("payout = (%d, %d), want (25, 100)", res.AmountA, res.AmountB)
	}
	if got := ledger.Balance(alice.Hex(), tokenA.Hex()); got != 25 {
		t.Fatalf("alice token a = %d, want 25", got)
	}
	if got := ledger.Balance(alice.Hex(), tokenB.Hex()); got != 100 {
		t.Fatalf("alice token b = %d, want 100", got)
	}
}

func TestRecreatePoolAfterFullExit(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)
	ctx := context.Background()

	if _, err := svc.RemoveLiquidity(ctx, tokenA, tokenB, 200, alice); err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}

	// The emptied pool has no price; trades against it are rejected.
	ledger.Mint(carol.Hex(), tokenA.Hex(), 10)
	if _, err := svc.Swap(ctx, tokenA, tokenB, model.SideA, 10, carol); !errors.Is(err, engine.ErrInvalidLiquidityOperation) {
		t.Fatalf("expected ErrInvalidLiquidityOperation on an empty pool, got %v", err)
	}

	minted, err := svc.CreatePool(ctx, tokenA, tokenB, 100, 400, alice)
	if err != nil {
		t.Fatalf("recreate pool: %v", err)
	}
	if minted != 200 {
		t.Fatalf("minted = %d, want 200", minted)
	}
}

func TestCreatePoolUnwindsDepositOnFailure(t *testing.T) {
	svc, store, ledger := newTestService(t, nil)
	ctx := context.Background()

	// Alice holds only side a; the second custody leg fails.
	ledger.Mint(alice.Hex(), tokenA.Hex(), 100)
	if _, err := svc.CreatePool(ctx, tokenA, tokenB, 100, 400, alice); err == nil {
		t.Fatalf("expected error for an unfunded side")
	}

	if got := ledger.Balance(alice.Hex(), tokenA.Hex()); got != 100 {
		t.Fatalf("alice token a = %d, want 100", got)
	}
	if got := ledger.Custodied(tokenA.Hex()); got != 0 {
		t.Fatalf("custodied token a = %d, want 0", got)
	}
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())
	if _, err := store.GetPool(ctx, id); !errors.Is(err, storage.ErrPoolNotFound) {
		t.Fatalf("expected no pool, got %v", err)
	}
}

func TestAddLiquidityUnwindsDepositOnFailure(t *testing.T) {
	svc, store, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)
	ctx := context.Background()
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())

	before, err := store.GetPool(ctx, id)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}

	ledger.Mint(bob.Hex(), tokenA.Hex(), 50)
	if _, err := svc.AddLiquidity(ctx, tokenA, tokenB, 50, 400, bob); err == nil {
		t.Fatalf("expected error for an unfunded side")
	}

	if got := ledger.Balance(bob.Hex(), tokenA.Hex()); got != 50 {
		t.Fatalf("bob token a = %d, want 50", got)
	}
	if got := ledger.Custodied(tokenA.Hex()); got != 100 {
		t.Fatalf("custodied token a = %d, want 100", got)
	}
	after, err := store.GetPool(ctx, id)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed deposit changed stored pool: %+v != %+v", before, after)
	}
}

func TestSwapFlow(t *testing.T) {
	svc, _, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)

	ledger.Mint(carol.Hex(), tokenA.Hex(), 10)
	out, err := svc.Swap(context.Background(), tokenA, tokenB, model.SideA, 10, carol)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out != 37 {
		t.Fatalf("output = %d, want 37", out)
	}
	if got := ledger.Balance(carol.Hex(), tokenB.Hex()); got != 37 {
		t.Fatalf("carol token b = %d, want 37", got)
	}
	if got := ledger.Custodied(tokenA.Hex()); got != 110 {
		t.Fatalf("custodied token a = %d, want 110", got)
	}
	if got := ledger.Custodied(tokenB.Hex()); got != 363 {
		t.Fatalf("custodied token b = %d, want 363", got)
	}
}

func TestClaimCouponFlow(t *testing.T) {
	svc, store, ledger := newTestService(t, nil)
	createTestPool(t, svc, ledger)
	ctx := context.Background()
	id := model.PairKey(tokenA.Hex(), tokenB.Hex())

	// Same epoch as the deposit: rejected, and the stored pool is untouched.
	before, err := store.GetPool(ctx, id)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if _, err := svc.ClaimCoupon(ctx, tokenA, tokenB, 1, alice); !errors.Is(err, engine.ErrIneligibleClaimWindow) {
		t.Fatalf("expected ErrIneligibleClaimWindow, got %v", err)
	}
	after, err := store.GetPool(ctx, id)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed claim changed stored pool: %+v != %+v", before, after)
	}

	if err := store.SaveEpoch(ctx, 2); err != nil {
		t.Fatalf("advance epoch: %v", err)
	}
	coupon, err := svc.ClaimCoupon(ctx, tokenA, tokenB, 1, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if coupon.ID() != testMs || coupon.Epoch() != 2 || coupon.LPAmount() != 200 {
		t.Fatalf("coupon = (id %d, epoch %d, lp %d)", coupon.ID(), coupon.Epoch(), coupon.LPAmount())
	}

	if _, err := svc.ClaimCoupon(ctx, tokenA, tokenB, 1, alice); !errors.Is(err, engine.ErrIneligibleClaimWindow) {
		t.Fatalf("expected ErrIneligibleClaimWindow on reclaim, got %v", err)
	}
}

func TestJournalRecordsOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.jsonl")
	journal := storage.NewJsonlJournal(path)
	svc, _, ledger := newTestService(t, journal)
	createTestPool(t, svc, ledger)

	ledger.Mint(carol.Hex(), tokenA.Hex(), 10)
	if _, err := svc.Swap(context.Background(), tokenA, tokenB, model.SideA, 10, carol); err != nil {
		t.Fatalf("swap: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var records []model.OpRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.OpRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("decode journal line: %v", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan journal: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("journal has %d records, want 2", len(records))
	}
	if records[0].Op != "create_pool" || records[1].Op != "swap" {
		t.Fatalf("ops = (%s, %s), want (create_pool, swap)", records[0].Op, records[1].Op)
	}
	if records[1].AmountOut != 37 {
		t.Fatalf("swap record output = %d, want 37", records[1].AmountOut)
	}
	if records[0].RecordedAt == "" {
		t.Fatalf("record missing timestamp")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xAAAAaAaAAAaaAAaaaaAAAAAAAaaaAAAAaaAaaaAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.EqualFold(addr.Hex(), tokenA.Hex()) {
		t.Fatalf("address = %s, want %s", addr.Hex(), tokenA.Hex())
	}

	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
}
