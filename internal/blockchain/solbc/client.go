// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/utils/metrics"
)

// ClientOptions содержит настройки клиента.
type ClientOptions struct {
	// RateLimitRPS ограничивает частоту RPC-запросов; 0 отключает лимит.
	RateLimitRPS float64
	Burst        int
	// RequestTimeout применяется к каждому отдельному RPC-вызову.
	RequestTimeout time.Duration
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Commitment     rpc.CommitmentType
	Metrics        *metrics.Collector
}

// DefaultClientOptions возвращает настройки по умолчанию.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		RateLimitRPS:   10,
		Burst:          5,
		RequestTimeout: 10 * time.Second,
		ConfirmTimeout: 30 * time.Second,
		PollInterval:   500 * time.Millisecond,
		Commitment:     rpc.CommitmentConfirmed,
	}
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc     *rpc.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	opts    ClientOptions
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger, opts ...ClientOptions) *Client {
	options := DefaultClientOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.Commitment == "" {
		options.Commitment = rpc.CommitmentConfirmed
	}
	if options.PollInterval <= 0 {
		options.PollInterval = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if options.RateLimitRPS > 0 {
		burst := options.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimitRPS), burst)
	}

	return &Client{
		rpc:     rpc.New(rpcURL),
		logger:  logger.Named("solbc-client"),
		limiter: limiter,
		opts:    options,
	}
}

// call ждёт лимитер, применяет таймаут запроса и записывает задержку.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return newRPCError(method, err)
		}
	}
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	c.opts.Metrics.RecordRPCLatency(method, time.Since(start), err)
	if err != nil {
		return newRPCError(method, err)
	}
	return nil
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		result, err := c.rpc.GetLatestBlockhash(ctx, c.opts.Commitment)
		if err != nil {
			return err
		}
		hash = result.Value.Blockhash
		return nil
	})
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return hash, nil
}

// GetAccountInfo получает информацию об аккаунте.
// Для отсутствующего аккаунта возвращает ошибку, для которой IsAccountNotFoundError == true.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var result *rpc.GetAccountInfoResult
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Commitment: c.opts.Commitment,
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
	}
	return result, nil
}

// AccountExists проверяет наличие аккаунта.
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	_, err := c.GetAccountInfo(ctx, pubkey)
	if err == nil {
		return true, nil
	}
	if IsAccountNotFoundError(err) {
		return false, nil
	}
	return false, err
}

// GetTokenBalance получает баланс токенного аккаунта
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (*blockchain.TokenBalance, error) {
	var result *rpc.GetTokenAccountBalanceResult
	err := c.call(ctx, "getTokenAccountBalance", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetTokenAccountBalance(ctx, account, c.opts.Commitment)
		return err
	})
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("token balance of %s: %w", account, ErrAccountNotFound)
	}
	return parseUiTokenAmount(result.Value)
}

func parseUiTokenAmount(v *rpc.UiTokenAmount) (*blockchain.TokenBalance, error) {
	amount, err := strconv.ParseUint(v.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse token amount %q: %w", v.Amount, err)
	}

	var ui float64
	switch {
	case v.UiAmount != nil:
		ui = *v.UiAmount
	case v.UiAmountString != "":
		ui, err = strconv.ParseFloat(v.UiAmountString, 64)
		if err != nil {
			return nil, fmt.Errorf("parse ui amount %q: %w", v.UiAmountString, err)
		}
	}

	return &blockchain.TokenBalance{
		Amount:   amount,
		UIAmount: ui,
		Decimals: v.Decimals,
	}, nil
}

// GetMinimumBalanceForRentExemption возвращает минимальный баланс для аккаунта размером dataSize.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var lamports uint64
	err := c.call(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context) error {
		var err error
		lamports, err = c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, c.opts.Commitment)
		return err
	})
	if err != nil {
		c.logger.Error("GetMinimumBalanceForRentExemption error", zap.Error(err))
		return 0, err
	}
	return lamports, nil
}

// GetProgramAccountsWithOpts получает все аккаунты программы с опциями фильтрации
func (c *Client) GetProgramAccountsWithOpts(
	ctx context.Context,
	programID solana.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (rpc.GetProgramAccountsResult, error) {
	var accounts rpc.GetProgramAccountsResult
	err := c.call(ctx, "getProgramAccounts", func(ctx context.Context) error {
		var err error
		accounts, err = c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
		return err
	})
	if err != nil {
		c.logger.Debug("GetProgramAccountsWithOpts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call(ctx, "sendTransaction", func(ctx context.Context) error {
		var err error
		sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var result *rpc.GetSignatureStatusesResult
	err := c.call(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		var err error
		result, err = c.rpc.GetSignatureStatuses(ctx, false, signatures...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WaitForTransactionConfirmation ожидает подтверждения транзакции (с простым polling‑механизмом).
// Транзакция, попавшая в блок с ошибкой, возвращает ErrTransactionFailed.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	var timeout <-chan time.Time
	if c.opts.ConfirmTimeout > 0 {
		timer := time.NewTimer(c.opts.ConfirmTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: confirmation of %s after %s", ErrTimeout, signature, c.opts.ConfirmTimeout)
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if reachedCommitment(status.ConfirmationStatus, commitment) {
				return nil
			}
		}
	}
}

func reachedCommitment(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
