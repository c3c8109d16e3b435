// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/bot"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	configPath string
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "pumpswap-bot",
		Short:         "Buy tokens from PumpSwap AMM pools with SOL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (json, yaml or toml)")
	root.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "write logs to the log file only")
	root.PersistentFlags().String("rpc-url", "", "Solana RPC endpoint")
	root.PersistentFlags().String("private-key", "", "base58 wallet private key")
	root.PersistentFlags().String("log-file", "", "log file path")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.PersistentFlags().Float64("rate-limit-rps", 0, "RPC requests per second (0 disables)")
	root.PersistentFlags().String("metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(
		newBuyCmd(opts),
		newPoolCmd(opts),
		newCloseWSOLCmd(opts),
	)
	return root
}

// newRunner загружает конфигурацию с учетом флагов команды и собирает Runner.
func newRunner(cmd *cobra.Command, opts *globalOpts) (*bot.Runner, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return bot.NewRunner(cfg, opts.quiet)
}
