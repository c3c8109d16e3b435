package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/dex/pumpswap"
)

func newCloseWSOLCmd(opts *globalOpts) *cobra.Command {
	var accountStr string
	cmd := &cobra.Command{
		Use:   "close-wsol",
		Short: "Close a wrapped SOL account left by an interrupted buy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseOptionalKey("account", accountStr)
			if err != nil {
				return err
			}

			runner, err := newRunner(cmd, opts)
			if err != nil {
				return err
			}
			defer runner.Shutdown()

			return runner.Run(cmd.Context(), func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()

				sig, err := runner.CloseWSOL(ctx, account)
				if errors.Is(err, pumpswap.ErrNothingToClose) {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to close")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tx signature: %s\n", sig)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&accountStr, "account", "", "account to close (default: the seeded funding account)")
	return cmd
}
