package model

import "strings"

// Side identifies one of the two assets of a pool.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "a"
	}
	return "b"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide converts a flag value ("a" or "b") into a Side.
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "a":
		return SideA, true
	case "b":
		return SideB, true
	default:
		return SideA, false
	}
}

// Pool is the full state of one constant-product pool: both reserves, the
// outstanding liquidity-share supply, and the coupon record of every provider
// that currently holds shares tracked through this pool.
type Pool struct {
	ID          string                   `json:"id"`
	TokenA      string                   `json:"token_a"`
	TokenB      string                   `json:"token_b"`
	ReserveA    uint64                   `json:"reserve_a"`
	ReserveB    uint64                   `json:"reserve_b"`
	ShareSupply uint64                   `json:"share_supply"`
	Providers   map[string]*CouponRecord `json:"providers"`
}

// CouponRecord tracks one provider's liquidity-share balance and the last
// epoch in which they claimed a coupon. LPAmount mirrors only the shares
// moved through this pool's add/remove operations; shares transferred between
// accounts outside the pool are not reflected here.
type CouponRecord struct {
	CouponID        uint64 `json:"coupon_id"`
	LPAmount        uint64 `json:"lp_amount"`
	LastUpdateEpoch uint64 `json:"last_update_epoch"`
}

// PairKey derives the canonical pool ID for a token pair. The order the
// caller lists the tokens in does not matter.
func PairKey(tokenA, tokenB string) string {
	a, b := strings.ToLower(tokenA), strings.ToLower(tokenB)
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Reserve returns the reserve on the given side.
func (p *Pool) Reserve(side Side) uint64 {
	if side == SideA {
		return p.ReserveA
	}
	return p.ReserveB
}

// Token returns the asset identity on the given side.
func (p *Pool) Token(side Side) string {
	if side == SideA {
		return p.TokenA
	}
	return p.TokenB
}

// Record returns the coupon record for a provider, or nil if untracked.
func (p *Pool) Record(provider string) *CouponRecord {
	if p.Providers == nil {
		return nil
	}
	return p.Providers[strings.ToLower(provider)]
}

// Clone returns a deep copy of the pool, records included.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.Providers = make(map[string]*CouponRecord, len(p.Providers))
	for addr, rec := range p.Providers {
		copied := *rec
		out.Providers[addr] = &copied
	}
	return &out
}
