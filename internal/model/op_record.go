package model

// OpRecord is the JSON representation of one committed pool operation,
// appended to the operation journal.
type OpRecord struct {
	Op           string `json:"op"`
	PoolID       string `json:"pool_id"`
	Actor        string `json:"actor"`
	AmountA      uint64 `json:"amount_a,omitempty"`
	AmountB      uint64 `json:"amount_b,omitempty"`
	InputSide    string `json:"input_side,omitempty"`
	AmountIn     uint64 `json:"amount_in,omitempty"`
	AmountOut    uint64 `json:"amount_out,omitempty"`
	SharesMinted uint64 `json:"shares_minted,omitempty"`
	SharesBurned uint64 `json:"shares_burned,omitempty"`
	RefundSide   string `json:"refund_side,omitempty"`
	RefundAmount uint64 `json:"refund_amount,omitempty"`
	CouponID     uint64 `json:"coupon_id,omitempty"`
	LotteryType  uint8  `json:"lottery_type,omitempty"`
	Epoch        uint64 `json:"epoch,omitempty"`
	RecordedAt   string `json:"recorded_at"`
}
