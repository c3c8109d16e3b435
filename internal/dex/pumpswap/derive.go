// internal/dex/pumpswap/derive.go
package pumpswap

import (
	"github.com/gagliardetto/solana-go"
)

// PDA seed tags of the PumpSwap program.
const (
	SeedCreatorVault   = "creator_vault"
	SeedEventAuthority = "__event_authority"
	SeedGlobalConfig   = "global_config"
)

// DerivedAddress is a program address with the bump that moved it off the curve.
type DerivedAddress struct {
	Address solana.PublicKey
	Bump    uint8
}

// DeriveAddress finds the program address for seeds under program.
func DeriveAddress(seeds [][]byte, program solana.PublicKey) (DerivedAddress, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return DerivedAddress{}, &DerivationError{Program: program, Err: err}
	}
	return DerivedAddress{Address: addr, Bump: bump}, nil
}

// DeriveCoinCreatorVaultAuthority derives the vault authority of the pool's coin creator.
func DeriveCoinCreatorVaultAuthority(coinCreator, program solana.PublicKey) (DerivedAddress, error) {
	return DeriveAddress([][]byte{[]byte(SeedCreatorVault), coinCreator.Bytes()}, program)
}

// DeriveCoinCreatorVaultATA derives the vault authority's token account for mint.
func DeriveCoinCreatorVaultATA(authority, tokenProgram, mint solana.PublicKey) (DerivedAddress, error) {
	return deriveATA(authority, tokenProgram, mint)
}

// DeriveAssociatedTokenAccount derives owner's associated account for mint
// under the classic token program.
func DeriveAssociatedTokenAccount(owner, mint solana.PublicKey) (DerivedAddress, error) {
	return deriveATA(owner, TokenProgramID, mint)
}

func deriveATA(owner, tokenProgram, mint solana.PublicKey) (DerivedAddress, error) {
	return DeriveAddress([][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()}, AssociatedTokenProgramID)
}

// DeriveEventAuthority derives the authority the program signs its event CPI with.
func DeriveEventAuthority(program solana.PublicKey) (DerivedAddress, error) {
	return DeriveAddress([][]byte{[]byte(SeedEventAuthority)}, program)
}

// DeriveGlobalConfig derives the program's global config account.
func DeriveGlobalConfig(program solana.PublicKey) (DerivedAddress, error) {
	return DeriveAddress([][]byte{[]byte(SeedGlobalConfig)}, program)
}

// DeriveEphemeralWSOLAccount computes the seeded address of the temporary
// wrapped SOL account owned by the token program.
func DeriveEphemeralWSOLAccount(payer solana.PublicKey, seed string, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, err := solana.CreateWithSeed(payer, seed, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, &DerivationError{Program: tokenProgram, Err: err}
	}
	return addr, nil
}

// BuyAccounts holds every derived address the buy instruction references.
type BuyAccounts struct {
	UserBaseATA         solana.PublicKey
	CoinCreatorVault    DerivedAddress
	CoinCreatorVaultATA DerivedAddress
}

// DeriveBuyAccounts derives the user's base ATA and the coin creator vault pair.
func DeriveBuyAccounts(cfg Config, state *PoolState, payer solana.PublicKey) (BuyAccounts, error) {
	userATA, err := deriveATA(payer, cfg.TokenProgram, state.BaseMint)
	if err != nil {
		return BuyAccounts{}, err
	}
	authority, err := DeriveCoinCreatorVaultAuthority(state.CoinCreator, cfg.ProgramID)
	if err != nil {
		return BuyAccounts{}, err
	}
	vaultATA, err := DeriveCoinCreatorVaultATA(authority.Address, cfg.TokenProgram, cfg.QuoteMint)
	if err != nil {
		return BuyAccounts{}, err
	}
	return BuyAccounts{
		UserBaseATA:         userATA.Address,
		CoinCreatorVault:    authority,
		CoinCreatorVaultATA: vaultATA,
	}, nil
}
