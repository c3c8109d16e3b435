// internal/dex/pumpswap/assembler.go
package pumpswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// AccountProber reports whether an account exists on chain.
type AccountProber interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}

// EphemeralFundingAccount is the wrapped SOL account that lives only inside
// one transaction: created, initialised, spent by the buy and closed.
type EphemeralFundingAccount struct {
	Address solana.PublicKey
	Seed    string
	// Lamports funded at creation: max quote in plus rent.
	Lamports uint64
	Rent     uint64
}

// InstructionPlan is an ordered, immutable set of instructions for one buy.
type InstructionPlan struct {
	payer        solana.PublicKey
	funding      EphemeralFundingAccount
	instructions []solana.Instruction
	ataCreated   bool
	programID    solana.PublicKey
	tokenProgram solana.PublicKey
}

func (p *InstructionPlan) Payer() solana.PublicKey { return p.payer }

func (p *InstructionPlan) Funding() EphemeralFundingAccount { return p.funding }

// CreatesATA reports whether the plan creates the user's base token account.
func (p *InstructionPlan) CreatesATA() bool { return p.ataCreated }

// Instructions returns a copy of the ordered instruction list.
func (p *InstructionPlan) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}

// Validate checks the ordering constraints: the funding account is created
// and initialised before the program instruction references it, and closing
// it is the final instruction.
func (p *InstructionPlan) Validate() error {
	if len(p.instructions) == 0 {
		return errors.New("plan has no instructions")
	}

	createIdx, initIdx, ataIdx, tradeIdx, closeIdx := -1, -1, -1, -1, -1
	funding := p.funding.Address
	for i, ix := range p.instructions {
		program := ix.ProgramID()
		switch {
		case program.Equals(SystemProgramID) && referencesAccount(ix, funding) && createIdx < 0:
			createIdx = i
		case program.Equals(p.tokenProgram) && isTokenInstruction(ix, tokenInstructionInitializeAccount) && referencesAccount(ix, funding):
			initIdx = i
		case program.Equals(AssociatedTokenProgramID):
			ataIdx = i
		case program.Equals(p.programID):
			tradeIdx = i
		case program.Equals(p.tokenProgram) && isTokenInstruction(ix, tokenInstructionCloseAccount) && referencesAccount(ix, funding):
			closeIdx = i
		}
	}

	switch {
	case tradeIdx < 0:
		return errors.New("plan has no program instruction")
	case createIdx < 0 || initIdx < 0:
		return errors.New("plan does not create the funding account")
	case closeIdx < 0:
		return errors.New("plan does not close the funding account")
	case !(createIdx < initIdx && initIdx < tradeIdx):
		return fmt.Errorf("funding account must be created (%d) and initialised (%d) before the trade (%d)", createIdx, initIdx, tradeIdx)
	case ataIdx > tradeIdx:
		return fmt.Errorf("base token account is created (%d) after the trade (%d)", ataIdx, tradeIdx)
	case closeIdx != len(p.instructions)-1:
		return fmt.Errorf("close instruction at %d is not last of %d", closeIdx, len(p.instructions))
	}
	return nil
}

// Transaction builds the unsigned transaction paid by the plan's payer.
func (p *InstructionPlan) Transaction(blockhash solana.Hash) (*solana.Transaction, error) {
	return solana.NewTransaction(p.Instructions(), blockhash, solana.TransactionPayer(p.payer))
}

// Token program instruction type ids.
const (
	tokenInstructionInitializeAccount = 1
	tokenInstructionCloseAccount      = 9
)

func isTokenInstruction(ix solana.Instruction, typeID byte) bool {
	data, err := ix.Data()
	return err == nil && len(data) > 0 && data[0] == typeID
}

func referencesAccount(ix solana.Instruction, account solana.PublicKey) bool {
	for _, meta := range ix.Accounts() {
		if meta.PublicKey.Equals(account) {
			return true
		}
	}
	return false
}

// AssembleParams are the resolved inputs of one buy.
type AssembleParams struct {
	Pool               solana.PublicKey
	State              *PoolState
	Quote              SwapQuote
	Payer              solana.PublicKey
	RentExemptLamports uint64
}

// Assembler builds instruction plans. It performs no retries.
type Assembler struct {
	cfg      Config
	accounts AccountProber
	logger   *zap.Logger
}

func NewAssembler(cfg Config, accounts AccountProber, logger *zap.Logger) *Assembler {
	return &Assembler{
		cfg:      cfg,
		accounts: accounts,
		logger:   logger.Named("assembler"),
	}
}

// Assemble orders the full buy:
// compute limit, compute price, create funding account, initialise it,
// create the base ATA when missing, buy, close funding account.
func (a *Assembler) Assemble(ctx context.Context, params AssembleParams) (*InstructionPlan, error) {
	if params.State == nil {
		return nil, &AssemblyError{Step: "input", Err: errors.New("pool state is nil")}
	}
	if params.Payer.IsZero() {
		return nil, &AssemblyError{Step: "input", Err: errors.New("payer is not set")}
	}
	if params.Quote.BaseAmountOut == 0 || params.Quote.MaxQuoteAmountIn == 0 {
		return nil, &AssemblyError{Step: "input", Err: errors.New("quote is empty")}
	}
	if !params.State.QuoteMint.Equals(a.cfg.QuoteMint) {
		return nil, &AssemblyError{
			Step: "input",
			Err:  fmt.Errorf("pool quote mint %s is not %s", params.State.QuoteMint, a.cfg.QuoteMint),
		}
	}

	accounts, err := DeriveBuyAccounts(a.cfg, params.State, params.Payer)
	if err != nil {
		return nil, &AssemblyError{Step: "derive", Err: err}
	}

	fundingAddr, err := DeriveEphemeralWSOLAccount(params.Payer, a.cfg.WSOLSeed, a.cfg.TokenProgram)
	if err != nil {
		return nil, &AssemblyError{Step: "derive", Err: err}
	}
	funding := EphemeralFundingAccount{
		Address:  fundingAddr,
		Seed:     a.cfg.WSOLSeed,
		Lamports: params.Quote.MaxQuoteAmountIn + params.RentExemptLamports,
		Rent:     params.RentExemptLamports,
	}

	var instructions []solana.Instruction
	instructions = append(instructions, computeBudgetInstructions(a.cfg.ComputeUnitLimit, a.cfg.ComputeUnitPrice)...)
	instructions = append(instructions, createFundingAccountInstructions(a.cfg, params.Payer, funding)...)

	ataIxs, err := a.ensureBaseATA(ctx, params.Payer, params.State.BaseMint, accounts.UserBaseATA)
	if err != nil {
		return nil, &AssemblyError{Step: "base ata", Err: err}
	}
	instructions = append(instructions, ataIxs...)

	buyIx, err := createBuyInstruction(&BuyInstructionParams{
		Pool:                             params.Pool,
		User:                             params.Payer,
		GlobalConfig:                     a.cfg.GlobalConfig,
		BaseMint:                         params.State.BaseMint,
		QuoteMint:                        a.cfg.QuoteMint,
		UserBaseTokenAccount:             accounts.UserBaseATA,
		UserQuoteTokenAccount:            funding.Address,
		PoolBaseTokenAccount:             params.State.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            params.State.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             a.cfg.ProtocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: a.cfg.ProtocolFeeRecipientTokenAccount,
		BaseTokenProgram:                 a.cfg.TokenProgram,
		QuoteTokenProgram:                a.cfg.TokenProgram,
		EventAuthority:                   a.cfg.EventAuthority,
		ProgramID:                        a.cfg.ProgramID,
		CoinCreatorVaultATA:              accounts.CoinCreatorVaultATA.Address,
		CoinCreatorVaultAuthority:        accounts.CoinCreatorVault.Address,
		BaseAmountOut:                    params.Quote.BaseAmountOut,
		MaxQuoteAmountIn:                 params.Quote.MaxQuoteAmountIn,
	})
	if err != nil {
		return nil, &AssemblyError{Step: "buy instruction", Err: err}
	}
	instructions = append(instructions, buyIx)
	instructions = append(instructions, closeAccountInstruction(funding.Address, params.Payer))

	plan := &InstructionPlan{
		payer:        params.Payer,
		funding:      funding,
		instructions: instructions,
		ataCreated:   len(ataIxs) > 0,
		programID:    a.cfg.ProgramID,
		tokenProgram: a.cfg.TokenProgram,
	}
	if err := plan.Validate(); err != nil {
		return nil, &AssemblyError{Step: "order", Err: err}
	}

	a.logger.Debug("Instruction plan assembled",
		zap.String("pool", params.Pool.String()),
		zap.String("funding_account", funding.Address.String()),
		zap.Uint64("funding_lamports", funding.Lamports),
		zap.Bool("create_base_ata", plan.ataCreated),
		zap.Int("instructions", len(instructions)))

	return plan, nil
}

// ensureBaseATA emits the create instruction only when the account is absent.
func (a *Assembler) ensureBaseATA(ctx context.Context, payer, mint, ata solana.PublicKey) ([]solana.Instruction, error) {
	exists, err := a.accounts.AccountExists(ctx, ata)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", ata, err)
	}
	if exists {
		return nil, nil
	}
	a.logger.Debug("Base token account missing, adding create instruction",
		zap.String("ata", ata.String()),
		zap.String("mint", mint.String()))
	return []solana.Instruction{createATAInstruction(payer, payer, mint)}, nil
}
