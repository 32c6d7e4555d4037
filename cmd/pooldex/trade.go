package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pooldex/internal/model"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one asset for the other at the constant-product price",
		RunE:  runSwap,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")
	cmd.Flags().String("side", "a", "input side (a or b)")
	cmd.Flags().Uint64("amount-in", 0, "input amount")
	cmd.Flags().String("trader", "", "trader address")

	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenA, tokenB, err := pairFlags(cmd)
	if err != nil {
		return err
	}
	trader, err := addressFlag(cmd, "trader")
	if err != nil {
		return err
	}
	sideRaw, _ := cmd.Flags().GetString("side")
	side, ok := model.ParseSide(sideRaw)
	if !ok {
		return fmt.Errorf("invalid side: %q", sideRaw)
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")

	amountOut, err := rt.svc.Swap(cmd.Context(), tokenA, tokenB, side, amountIn, trader)
	if err != nil {
		return err
	}
	rt.logger.Info("swap complete", zap.Uint64("amount_out", amountOut))
	return nil
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print pool reserves, supply, and the swap factor",
		RunE:  runQuote,
	}

	cmd.Flags().String("token-a", "", "token A address")
	cmd.Flags().String("token-b", "", "token B address")

	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenA, tokenB, err := pairFlags(cmd)
	if err != nil {
		return err
	}

	view, err := rt.svc.Quote(cmd.Context(), tokenA, tokenB)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
