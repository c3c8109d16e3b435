// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain"
)

// PoolClient – RPC-операции, необходимые PoolManager.
type PoolClient interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (*blockchain.TokenBalance, error)
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// PoolManager отвечает за поиск пулов PumpSwap и чтение их состояния.
// Состояние пула никогда не кешируется.
type PoolManager struct {
	client     PoolClient
	cfg        Config
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// PoolManagerOptions содержит опции для создания нового PoolManager.
type PoolManagerOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultPoolManagerOptions возвращает настройки по умолчанию.
func DefaultPoolManagerOptions() PoolManagerOptions {
	return PoolManagerOptions{
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// NewPoolManager создаёт новый PoolManager с заданными опциями.
func NewPoolManager(client PoolClient, cfg Config, logger *zap.Logger, opts ...PoolManagerOptions) *PoolManager {
	options := DefaultPoolManagerOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	return &PoolManager{
		client:     client,
		cfg:        cfg,
		logger:     logger.Named("pool_manager"),
		maxRetries: options.MaxRetries,
		retryDelay: options.RetryDelay,
	}
}

// FindPoolByBaseMint ищет пул base/WSOL через getProgramAccounts с фильтрами
// по discriminator, base mint и quote mint. Возвращается первое совпадение.
func (pm *PoolManager) FindPoolByBaseMint(ctx context.Context, baseMint solana.PublicKey) (solana.PublicKey, *PoolState, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: PoolDiscriminator[:]}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: PoolBaseMintOffset, Bytes: baseMint.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: PoolQuoteMintOffset, Bytes: pm.cfg.QuoteMint.Bytes()}},
		},
	}

	accounts, err := pm.client.GetProgramAccountsWithOpts(ctx, pm.cfg.ProgramID, opts)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("find pool for %s: %w", baseMint, err)
	}

	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		state, err := decodePoolAccount(acc.Account.Data.GetBinary())
		if err != nil {
			pm.logger.Debug("Skipping undecodable pool candidate",
				zap.String("pool", acc.Pubkey.String()),
				zap.Error(err))
			continue
		}

		pm.logger.Info("Pool found",
			zap.String("pool", acc.Pubkey.String()),
			zap.String("base_mint", state.BaseMint.String()),
			zap.Int("candidates", len(accounts)))
		return acc.Pubkey, state, nil
	}

	return solana.PublicKey{}, nil, fmt.Errorf("%w: base mint %s, quote mint %s", ErrPoolNotFound, baseMint, pm.cfg.QuoteMint)
}

// FindPoolWithRetry ищет пул с повторными попытками (пул может появиться
// через несколько слотов после миграции токена).
func (pm *PoolManager) FindPoolWithRetry(ctx context.Context, baseMint solana.PublicKey) (solana.PublicKey, *PoolState, error) {
	type found struct {
		address solana.PublicKey
		state   *PoolState
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = pm.retryDelay
	backoffPolicy.MaxInterval = pm.retryDelay * 10

	notify := func(err error, duration time.Duration) {
		pm.logger.Info("Повтор поиска пула после ошибки", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (found, error) {
		addr, state, err := pm.FindPoolByBaseMint(ctx, baseMint)
		return found{address: addr, state: state}, err
	}

	maxTries := uint(1)
	if pm.maxRetries > 0 {
		maxTries = uint(pm.maxRetries)
	}
	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		pm.logger.Error("Не удалось найти пул после всех попыток",
			zap.String("base_mint", baseMint.String()),
			zap.Error(err))
		return solana.PublicKey{}, nil, err
	}
	return res.address, res.state, nil
}

// FetchPoolState получает и декодирует аккаунт пула.
func (pm *PoolManager) FetchPoolState(ctx context.Context, pool solana.PublicKey) (*PoolState, error) {
	info, err := pm.client.GetAccountInfo(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", pool, err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, fmt.Errorf("fetch pool %s: %w", pool, ErrPoolNotFound)
	}
	if !info.Value.Owner.Equals(pm.cfg.ProgramID) {
		return nil, fmt.Errorf("account %s is owned by %s, not %s", pool, info.Value.Owner, pm.cfg.ProgramID)
	}

	state, err := decodePoolAccount(info.Value.Data.GetBinary())
	if err != nil {
		pm.logger.Error("Failed to decode pool", zap.String("pool", pool.String()), zap.Error(err))
		return nil, err
	}
	return state, nil
}

// decodePoolAccount decodes the known prefix of an on-chain pool account.
// Newer program versions append fields after the coin creator.
func decodePoolAccount(data []byte) (*PoolState, error) {
	if len(data) > PoolAccountSize {
		data = data[:PoolAccountSize]
	}
	return DecodePool(data)
}

// FetchReserves получает балансы хранилищ пула параллельно.
// Любая ошибка любого из запросов прерывает операцию.
func (pm *PoolManager) FetchReserves(ctx context.Context, state *PoolState) (Reserves, error) {
	if state == nil {
		return Reserves{}, &QuoteError{Reason: "pool state is nil"}
	}

	var base, quote *blockchain.TokenBalance
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bal, err := pm.client.GetTokenBalance(gctx, state.PoolBaseTokenAccount)
		if err != nil {
			return fmt.Errorf("base vault %s: %w", state.PoolBaseTokenAccount, err)
		}
		base = bal
		return nil
	})
	g.Go(func() error {
		bal, err := pm.client.GetTokenBalance(gctx, state.PoolQuoteTokenAccount)
		if err != nil {
			return fmt.Errorf("quote vault %s: %w", state.PoolQuoteTokenAccount, err)
		}
		quote = bal
		return nil
	})
	if err := g.Wait(); err != nil {
		return Reserves{}, &QuoteError{Reason: "fetch reserves", Err: err}
	}
	if base == nil || quote == nil {
		return Reserves{}, &QuoteError{Reason: "fetch reserves", Err: errors.New("empty balance response")}
	}

	if base.Decimals != pm.cfg.BaseDecimals {
		pm.logger.Warn("Base vault decimals differ from configured decimals",
			zap.Uint8("vault_decimals", base.Decimals),
			zap.Uint8("configured_decimals", pm.cfg.BaseDecimals))
	}

	reserves := Reserves{
		Base:          base.UIAmount,
		Quote:         quote.UIAmount,
		BaseDecimals:  pm.cfg.BaseDecimals,
		QuoteDecimals: quote.Decimals,
	}
	pm.logger.Debug("Pool reserves",
		zap.Float64("base", reserves.Base),
		zap.Float64("quote", reserves.Quote))
	return reserves, nil
}
