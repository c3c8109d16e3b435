package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func newPoolCmd(opts *globalOpts) *cobra.Command {
	var poolStr, mintStr string
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Locate and decode a pool, print reserves and derived accounts",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if poolStr == "" && mintStr == "" {
				return fmt.Errorf("either --pool or --base-mint is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parseOptionalKey("pool", poolStr)
			if err != nil {
				return err
			}
			mint, err := parseOptionalKey("base-mint", mintStr)
			if err != nil {
				return err
			}

			runner, err := newRunner(cmd, opts)
			if err != nil {
				return err
			}
			defer runner.Shutdown()

			return runner.Run(cmd.Context(), func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()

				report, err := runner.InspectPool(ctx, pool, mint)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				s := report.State
				fmt.Fprintf(out, "pool: %s\n", report.Address)
				fmt.Fprintf(out, "base mint: %s\n", s.BaseMint)
				fmt.Fprintf(out, "quote mint: %s\n", s.QuoteMint)
				fmt.Fprintf(out, "lp mint: %s\n", s.LPMint)
				fmt.Fprintf(out, "creator: %s\n", s.Creator)
				fmt.Fprintf(out, "coin creator: %s\n", s.CoinCreator)
				fmt.Fprintf(out, "base vault: %s\n", s.PoolBaseTokenAccount)
				fmt.Fprintf(out, "quote vault: %s\n", s.PoolQuoteTokenAccount)
				fmt.Fprintf(out, "lp supply: %d\n", s.LPSupply)
				fmt.Fprintf(out, "reserves: %f base / %f SOL\n", report.Reserves.Base, report.Reserves.Quote)
				if report.Reserves.Base > 0 {
					fmt.Fprintf(out, "spot price: %.12f SOL\n", report.Reserves.Quote/report.Reserves.Base)
				}
				if a := report.Accounts; a != nil {
					fmt.Fprintf(out, "user base ata: %s\n", a.UserBaseATA)
					fmt.Fprintf(out, "coin creator vault authority: %s\n", a.CoinCreatorVault.Address)
					fmt.Fprintf(out, "coin creator vault ata: %s\n", a.CoinCreatorVaultATA.Address)
					fmt.Fprintf(out, "wsol funding account: %s\n", report.FundingAccount)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&poolStr, "pool", "", "pool address")
	cmd.Flags().StringVar(&mintStr, "base-mint", "", "base token mint")
	return cmd
}

func parseOptionalKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return key, nil
}
