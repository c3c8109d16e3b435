// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// TokenBalance is a token account balance in raw and UI units.
type TokenBalance struct {
	Amount   uint64
	UIAmount float64
	Decimals uint8
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	// Получить информацию об аккаунте.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Проверить, существует ли аккаунт.
	AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error)
	// Получить баланс токен-аккаунта.
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (*TokenBalance, error)
	// Минимальный баланс для освобождения от ренты.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	// Найти аккаунты программы по фильтрам.
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Ожидание подтверждения транзакции.
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
}
