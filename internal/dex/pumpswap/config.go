// =============================
// File: internal/dex/pumpswap/config.go
// =============================
package pumpswap

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Program and account identifiers used by the buy path.
var (
	PumpSwapProgramID        = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	TokenProgramID           = solana.TokenProgramID
	SystemProgramID          = solana.SystemProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	WSOLMint                 = solana.WrappedSol

	DefaultGlobalConfig                     = solana.MustPublicKeyFromBase58("ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw")
	DefaultProtocolFeeRecipient             = solana.MustPublicKeyFromBase58("7VtfL8fvgNfhz17qKRMjzQEXgbdpnHHHQRh54R9jP2RJ")
	DefaultProtocolFeeRecipientTokenAccount = solana.MustPublicKeyFromBase58("7GFUN3bWzJMKMRZ34JLsvcqdssDbXnp589SiE33KVwcC")
	DefaultEventAuthority                   = solana.MustPublicKeyFromBase58("GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR")
)

const (
	DefaultComputeUnitLimit uint32 = 150_000
	// micro-lamports per compute unit
	DefaultComputeUnitPrice uint64 = 6_666_666

	DefaultWSOLSeed     = "AjaC6Yz8tvuM2UmU5PsbM3BouEFo7QYS"
	DefaultBaseDecimals = 6

	// TokenAccountSize is the size of an SPL token account record.
	TokenAccountSize uint64 = 165

	LamportsPerSOL = 1_000_000_000
)

// Config хранит неизменяемый набор констант протокола, которые передаются
// компонентам явно вместо глобального состояния.
type Config struct {
	ProgramID                        solana.PublicKey
	GlobalConfig                     solana.PublicKey
	EventAuthority                   solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey

	QuoteMint    solana.PublicKey
	TokenProgram solana.PublicKey

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	// WSOLSeed is the seed of the ephemeral wrapped SOL account.
	WSOLSeed     string
	BaseDecimals uint8
}

// DefaultConfig возвращает конфигурацию mainnet по умолчанию.
func DefaultConfig() Config {
	return Config{
		ProgramID:                        PumpSwapProgramID,
		GlobalConfig:                     DefaultGlobalConfig,
		EventAuthority:                   DefaultEventAuthority,
		ProtocolFeeRecipient:             DefaultProtocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: DefaultProtocolFeeRecipientTokenAccount,
		QuoteMint:                        WSOLMint,
		TokenProgram:                     TokenProgramID,
		ComputeUnitLimit:                 DefaultComputeUnitLimit,
		ComputeUnitPrice:                 DefaultComputeUnitPrice,
		WSOLSeed:                         DefaultWSOLSeed,
		BaseDecimals:                     DefaultBaseDecimals,
	}
}

// Validate проверяет, что все обязательные адреса заданы и seed допустим.
func (cfg Config) Validate() error {
	required := map[string]solana.PublicKey{
		"program_id":                          cfg.ProgramID,
		"global_config":                       cfg.GlobalConfig,
		"event_authority":                     cfg.EventAuthority,
		"protocol_fee_recipient":              cfg.ProtocolFeeRecipient,
		"protocol_fee_recipient_token_account": cfg.ProtocolFeeRecipientTokenAccount,
		"quote_mint":                          cfg.QuoteMint,
		"token_program":                       cfg.TokenProgram,
	}
	for name, key := range required {
		if key.IsZero() {
			return fmt.Errorf("pumpswap config: %s is not set", name)
		}
	}
	if cfg.WSOLSeed == "" || len(cfg.WSOLSeed) > solana.MaxSeedLength {
		return fmt.Errorf("pumpswap config: wsol seed must be 1..%d bytes, got %d", solana.MaxSeedLength, len(cfg.WSOLSeed))
	}
	if cfg.ComputeUnitLimit == 0 {
		return fmt.Errorf("pumpswap config: compute unit limit must be positive")
	}
	return nil
}

// VerifyDerivedAccounts сверяет event authority и global config с адресами,
// выведенными из program id.
func (cfg Config) VerifyDerivedAccounts() error {
	checks := []struct {
		name   string
		have   solana.PublicKey
		derive func(solana.PublicKey) (DerivedAddress, error)
	}{
		{name: "event_authority", have: cfg.EventAuthority, derive: DeriveEventAuthority},
		{name: "global_config", have: cfg.GlobalConfig, derive: DeriveGlobalConfig},
	}
	var errs []error
	for _, c := range checks {
		derived, err := c.derive(cfg.ProgramID)
		if err != nil {
			errs = append(errs, fmt.Errorf("derive %s: %w", c.name, err))
			continue
		}
		if !derived.Address.Equals(c.have) {
			errs = append(errs, fmt.Errorf("%s %s differs from derived %s", c.name, c.have, derived.Address))
		}
	}
	return errors.Join(errs...)
}
