// internal/dex/pumpswap/recovery.go
package pumpswap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// RecoveryComputeUnitLimit is enough for a single close instruction.
const RecoveryComputeUnitLimit uint32 = 50_000

// Recovery closes a wrapped SOL funding account left behind by an
// interrupted run and returns its lamports to the payer.
type Recovery struct {
	cfg      Config
	accounts AccountProber
	pipeline *Pipeline
	payer    solana.PublicKey
	logger   *zap.Logger
}

func NewRecovery(cfg Config, accounts AccountProber, pipeline *Pipeline, payer solana.PublicKey, logger *zap.Logger) *Recovery {
	return &Recovery{
		cfg:      cfg,
		accounts: accounts,
		pipeline: pipeline,
		payer:    payer,
		logger:   logger.Named("recovery"),
	}
}

// DefaultAccount returns the seeded funding account used by buys.
func (r *Recovery) DefaultAccount() (solana.PublicKey, error) {
	return DeriveEphemeralWSOLAccount(r.payer, r.cfg.WSOLSeed, r.cfg.TokenProgram)
}

// CloseLeftover closes account, or the default funding account when account
// is zero. Returns ErrNothingToClose when the account does not exist.
func (r *Recovery) CloseLeftover(ctx context.Context, account solana.PublicKey) (solana.Signature, error) {
	if account.IsZero() {
		def, err := r.DefaultAccount()
		if err != nil {
			return solana.Signature{}, err
		}
		account = def
	}

	exists, err := r.accounts.AccountExists(ctx, account)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("check %s: %w", account, err)
	}
	if !exists {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrNothingToClose, account)
	}

	r.logger.Info("Closing leftover wrapped SOL account", zap.String("account", account.String()))

	instructions := []solana.Instruction{
		computeBudgetInstructions(RecoveryComputeUnitLimit, r.cfg.ComputeUnitPrice)[0],
		closeAccountInstruction(account, r.payer),
	}
	return r.pipeline.SubmitInstructions(ctx, r.payer, instructions)
}
