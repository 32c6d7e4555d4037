package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim this epoch's coupon for a liquidity provider",
		RunE:  runClaim,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().String("provider", "", "provider address")
	cmd.Flags().Uint8("lottery-type", 0, "reward-tier tag stamped on the coupon")

	return cmd
}

func runClaim(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenA, tokenB, err := pairFlags(cmd)
	if err != nil {
		return err
	}
	provider, err := addressFlag(cmd, "provider")
	if err != nil {
		return err
	}
	lotteryType, _ := cmd.Flags().GetUint8("lottery-type")

	coupon, err := rt.svc.ClaimCoupon(cmd.Context(), tokenA, tokenB, lotteryType, provider)
	if err != nil {
		return err
	}
	rt.logger.Info("claim complete",
		zap.Uint64("coupon_id", coupon.ID()),
		zap.Uint8("lottery_type", coupon.LotteryType()),
		zap.Uint64("lp_amount", coupon.LPAmount()),
		zap.Uint64("epoch", coupon.Epoch()),
	)
	coupon.Release()
	return nil
}
