package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pooldex/internal/service"
)

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool from an initial two-sided deposit",
		RunE:  runCreate,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().Uint64("amount-a", 0, "initial amount of token A")
	cmd.Flags().Uint64("amount-b", 0, "initial amount of token B")
	cmd.Flags().String("creator", "", "creator address")

	return cmd
}

func runCreate(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenA, tokenB, err := pairFlags(cmd)
	if err != nil {
		return err
	}
	creator, err := addressFlag(cmd, "creator")
	if err != nil {
		return err
	}
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")

	minted, err := rt.svc.CreatePool(cmd.Context(), tokenA, tokenB, amountA, amountB, creator)
	if err != nil {
		return err
	}
	rt.logger.Info("create complete", zap.Uint64("minted", minted))
	return nil
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add liquidity to a pool",
		RunE:  runAdd,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().Uint64("amount-a", 0, "amount of token A supplied")
	cmd.Flags().Uint64("amount-b", 0, "amount of token B supplied")
	cmd.Flags().String("provider", "", "provider address")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
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
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")

	res, err := rt.svc.AddLiquidity(cmd.Context(), tokenA, tokenB, amountA, amountB, provider)
	if err != nil {
		return err
	}
	rt.logger.Info("add complete",
		zap.Uint64("minted", res.Minted),
		zap.Uint64("used_a", res.UsedA),
		zap.Uint64("used_b", res.UsedB),
		zap.Uint64("refund", res.RefundAmount),
	)
	return nil
}

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn liquidity shares and withdraw the reserves",
		RunE:  runRemove,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().Uint64("shares", 0, "liquidity shares to burn")
	cmd.Flags().String("provider", "", "provider address")

	return cmd
}

func runRemove(cmd *cobra.Command, _ []string) error {
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
	shares, _ := cmd.Flags().GetUint64("shares")

	res, err := rt.svc.RemoveLiquidity(cmd.Context(), tokenA, tokenB, shares, provider)
	if err != nil {
		return err
	}
	rt.logger.Info("remove complete",
		zap.Uint64("amount_a", res.AmountA),
		zap.Uint64("amount_b", res.AmountB),
	)
	return nil
}

func pairFlags(cmd *cobra.Command) (tokenA, tokenB common.Address, err error) {
	tokenA, err = addressFlag(cmd, "token-a")
	if err != nil {
		return
	}
	tokenB, err = addressFlag(cmd, "token-b")
	return
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	return service.ParseAddress(raw)
}
