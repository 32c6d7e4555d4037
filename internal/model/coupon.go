package model

// Coupon is an immutable reward receipt issued to a liquidity provider. The
// holder reads its fields through the accessors and releases it once consumed.
type Coupon struct {
	id          uint64
	lotteryType uint8
	lpAmount    uint64
	epoch       uint64
}

// NewCoupon builds a coupon snapshotting the provider's state at issuance.
func NewCoupon(id uint64, lotteryType uint8, lpAmount, epoch uint64) Coupon {
	return Coupon{
		id:          id,
		lotteryType: lotteryType,
		lpAmount:    lpAmount,
		epoch:       epoch,
	}
}

// ID returns the coupon identifier minted at the provider's first deposit.
func (c Coupon) ID() uint64 { return c.id }

// LotteryType returns the caller-chosen reward-tier tag.
func (c Coupon) LotteryType() uint8 { return c.lotteryType }

// LPAmount returns the provider's share balance at issuance.
func (c Coupon) LPAmount() uint64 { return c.lpAmount }

// Epoch returns the epoch the coupon was issued in.
func (c Coupon) Epoch() uint64 { return c.epoch }

// Release discards the coupon. It has no effect on any pool state; callers
// read whatever fields they need before releasing.
func (c *Coupon) Release() {
	*c = Coupon{}
}
