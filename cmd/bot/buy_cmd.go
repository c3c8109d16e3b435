package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/dex/pumpswap"
)

func newBuyCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy base token for SOL from a PumpSwap pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newRunner(cmd, opts)
			if err != nil {
				return err
			}
			defer runner.Shutdown()

			return runner.Run(cmd.Context(), func(ctx context.Context) error {
				outcome, err := runner.Buy(ctx)
				if err != nil {
					return fmt.Errorf("buy failed (%s): %w", pumpswap.TradeStatus(err), err)
				}
				printOutcome(cmd, outcome)
				return nil
			})
		},
	}

	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("base-mint", "", "base token mint, used to locate the pool when --pool is empty")
	cmd.Flags().Float64("spend-sol", 0, "SOL to spend")
	cmd.Flags().Float64("slippage", 0, "slippage tolerance as a fraction (0.05 = 5%)")
	cmd.Flags().Uint32("compute-unit-limit", 0, "compute unit limit")
	cmd.Flags().Uint64("compute-unit-price", 0, "priority fee in micro-lamports per compute unit")
	cmd.Flags().Uint("max-attempts", 0, "send attempts before giving up")
	cmd.Flags().Duration("confirm-timeout", 0, "how long to wait for confirmation")
	return cmd
}

func printOutcome(cmd *cobra.Command, o *pumpswap.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tx signature: %s\n", o.Signature)
	fmt.Fprintf(out, "pool: %s\n", o.Pool)
	fmt.Fprintf(out, "base mint: %s\n", o.BaseMint)
	fmt.Fprintf(out, "price: %.12f SOL\n", o.Quote.Price)
	fmt.Fprintf(out, "base amount out: %d\n", o.Quote.BaseAmountOut)
	fmt.Fprintf(out, "max quote amount in: %d lamports\n", o.Quote.MaxQuoteAmountIn)
	fmt.Fprintf(out, "created ata: %t\n", o.CreatedATA)
	fmt.Fprintf(out, "duration: %s\n", o.Duration)
}
