// =============================
// File: internal/dex/pumpswap/instructions.go
// =============================
package pumpswap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// BuyDiscriminator is the instruction tag of the buy method (66063d1201daebea).
var BuyDiscriminator = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}

// BuyDataSize is the buy payload length: tag + base_amount_out + max_quote_amount_in.
const BuyDataSize = 8 + 8 + 8

// BuyAccountCount is the number of accounts the buy instruction references.
const BuyAccountCount = 19

// BuyInstructionParams contains all parameters needed to create a buy instruction
type BuyInstructionParams struct {
	Pool                             solana.PublicKey
	User                             solana.PublicKey
	GlobalConfig                     solana.PublicKey
	BaseMint                         solana.PublicKey
	QuoteMint                        solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	PoolBaseTokenAccount             solana.PublicKey
	PoolQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
	BaseTokenProgram                 solana.PublicKey
	QuoteTokenProgram                solana.PublicKey
	EventAuthority                   solana.PublicKey
	ProgramID                        solana.PublicKey
	CoinCreatorVaultATA              solana.PublicKey
	CoinCreatorVaultAuthority        solana.PublicKey

	BaseAmountOut    uint64
	MaxQuoteAmountIn uint64
}

// encodeBuyData serialises the 24-byte buy payload.
func encodeBuyData(baseAmountOut, maxQuoteAmountIn uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(BuyDataSize)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteBytes(BuyDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(baseAmountOut, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(maxQuoteAmountIn, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// createBuyInstruction creates the PumpSwap buy instruction.
// Account order and flags are part of the program's interface.
func createBuyInstruction(params *BuyInstructionParams) (solana.Instruction, error) {
	data, err := encodeBuyData(params.BaseAmountOut, params.MaxQuoteAmountIn)
	if err != nil {
		return nil, fmt.Errorf("encode buy data: %w", err)
	}

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.Pool, true, false),
		solana.NewAccountMeta(params.User, true, true),
		solana.NewAccountMeta(params.GlobalConfig, false, false),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipient, false, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipientTokenAccount, true, false),
		solana.NewAccountMeta(params.BaseTokenProgram, false, false),
		solana.NewAccountMeta(params.QuoteTokenProgram, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
		solana.NewAccountMeta(AssociatedTokenProgramID, false, false),
		solana.NewAccountMeta(params.EventAuthority, false, false),
		solana.NewAccountMeta(params.ProgramID, false, false),
		solana.NewAccountMeta(params.CoinCreatorVaultATA, true, false),
		solana.NewAccountMeta(params.CoinCreatorVaultAuthority, false, false),
	}

	return solana.NewInstruction(params.ProgramID, accountMetas, data), nil
}

func computeBudgetInstructions(limit uint32, microLamports uint64) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(limit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build(),
	}
}

// createFundingAccountInstructions creates the seeded wrapped SOL account and
// initialises it as a token account owned by payer.
func createFundingAccountInstructions(cfg Config, payer solana.PublicKey, acc EphemeralFundingAccount) []solana.Instruction {
	create := system.NewCreateAccountWithSeedInstruction(
		payer,
		acc.Seed,
		acc.Lamports,
		TokenAccountSize,
		cfg.TokenProgram,
		payer,
		acc.Address,
		payer,
	).Build()

	initialize := token.NewInitializeAccountInstruction(
		acc.Address,
		cfg.QuoteMint,
		payer,
		solana.SysVarRentPubkey,
	).Build()

	return []solana.Instruction{create, initialize}
}

// closeAccountInstruction returns the account's lamports and rent to owner.
func closeAccountInstruction(account, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(
		account,
		owner,
		owner,
		[]solana.PublicKey{},
	).Build()
}

func createATAInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	return associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build()
}
