// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/config"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/dex/pumpswap"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/utils/logger"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/utils/metrics"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/wallet"
)

// ErrNoWallet is returned by operations that sign when no private key is configured.
var ErrNoWallet = errors.New("private_key is not configured")

// Runner собирает зависимости бота из конфигурации и управляет их жизненным циклом.
type Runner struct {
	cfg      *config.Config
	logger   *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	client   *solbc.Client
	protocol pumpswap.Config
	pools    *pumpswap.PoolManager
	wallet   *wallet.Wallet

	buyer    *pumpswap.Buyer
	recovery *pumpswap.Recovery

	shutdownCh chan os.Signal
}

// NewRunner принимает cfg и строит логгер, RPC клиент и компоненты покупки.
// Кошелек необязателен: без него доступны только операции чтения.
func NewRunner(cfg *config.Config, quiet bool) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.Debug
	logCfg.Quiet = quiet
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return nil, err
	}

	clientOpts := solbc.DefaultClientOptions()
	clientOpts.RateLimitRPS = cfg.RateLimitRPS
	clientOpts.RequestTimeout = cfg.RPCTimeout
	clientOpts.ConfirmTimeout = cfg.ConfirmTimeout
	clientOpts.Metrics = collector
	client := solbc.NewClient(cfg.RPCURL, log.Logger, clientOpts)

	protocol := pumpswap.DefaultConfig()
	protocol.ComputeUnitLimit = cfg.ComputeUnitLimit
	protocol.ComputeUnitPrice = cfg.ComputeUnitPrice
	if err := protocol.Validate(); err != nil {
		return nil, err
	}
	if err := protocol.VerifyDerivedAccounts(); err != nil {
		log.Warn("Protocol accounts differ from derived addresses", zap.Error(err))
	}

	r := &Runner{
		cfg:        cfg,
		logger:     log,
		registry:   registry,
		metrics:    collector,
		client:     client,
		protocol:   protocol,
		pools:      pumpswap.NewPoolManager(client, protocol, log.Logger),
		shutdownCh: make(chan os.Signal, 1),
	}

	if cfg.PrivateKey != "" {
		w, err := wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("load wallet: %w", err)
		}
		r.attachWallet(w)
	}
	return r, nil
}

func (r *Runner) attachWallet(w *wallet.Wallet) {
	log := r.logger.Logger
	pipeline := pumpswap.NewPipeline(r.client, w, pumpswap.PipelineOptions{
		MaxAttempts: r.cfg.MaxAttempts,
		MaxElapsed:  r.cfg.MaxElapsed,
	}, log, r.metrics)
	assembler := pumpswap.NewAssembler(r.protocol, r.client, log)

	r.wallet = w
	r.buyer = pumpswap.NewBuyer(r.pools, assembler, pipeline, r.client, w.PublicKey, log, r.metrics)
	r.recovery = pumpswap.NewRecovery(r.protocol, r.client, pipeline, w.PublicKey, log)
}

// Logger возвращает логгер бота.
func (r *Runner) Logger() *logger.Logger { return r.logger }

// Run выполняет fn в контексте, который отменяется по SIGINT/SIGTERM.
// Если задан metrics_addr, на время выполнения поднимается /metrics.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	if r.cfg.MetricsAddr != "" {
		stop := r.serveMetrics(r.cfg.MetricsAddr)
		defer stop()
	}

	return fn(runCtx)
}

// MetricsHandler отдает метрики из реестра бота.
func (r *Runner) MetricsHandler() http.Handler {
	return metrics.Handler(r.registry)
}

func (r *Runner) serveMetrics(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		r.logger.Info("Metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.LogError("Metrics server failed", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			r.logger.LogError("Metrics server shutdown", err)
		}
	}
}

// Buy выполняет покупку с параметрами из конфигурации.
func (r *Runner) Buy(ctx context.Context) (*pumpswap.Outcome, error) {
	if r.buyer == nil {
		return nil, ErrNoWallet
	}
	if err := r.cfg.ValidateTrade(); err != nil {
		return nil, fmt.Errorf("invalid trade: %w", err)
	}
	pool, _ := r.cfg.PoolAddress()
	mint, _ := r.cfg.BaseMintAddress()

	r.logger.WithTrade(r.cfg.Pool, r.cfg.BaseMint, r.cfg.SpendSOL, r.cfg.Slippage).Info("Starting buy")
	defer r.logger.TrackPerformance("buy")()

	outcome, err := r.buyer.Buy(ctx, pumpswap.BuyRequest{
		Pool:     pool,
		BaseMint: mint,
		SpendSOL: r.cfg.SpendSOL,
		Slippage: r.cfg.Slippage,
	})
	if err != nil {
		r.logger.LogError("Buy failed", err, zap.String("status", pumpswap.TradeStatus(err)))
		return nil, err
	}
	r.logger.WithTransaction(outcome.Signature.String()).Info("Buy completed",
		zap.Uint64("base_amount_out", outcome.Quote.BaseAmountOut))
	return outcome, nil
}

// PoolReport описывает пул и адреса, которые использует покупка.
type PoolReport struct {
	Address  solana.PublicKey
	State    *pumpswap.PoolState
	Reserves pumpswap.Reserves
	// Accounts заполняется только при наличии кошелька.
	Accounts       *pumpswap.BuyAccounts
	FundingAccount solana.PublicKey
}

// InspectPool находит пул по адресу или по mint и читает его резервы.
func (r *Runner) InspectPool(ctx context.Context, pool, baseMint solana.PublicKey) (*PoolReport, error) {
	var (
		state *pumpswap.PoolState
		err   error
	)
	switch {
	case !pool.IsZero():
		state, err = r.pools.FetchPoolState(ctx, pool)
	case !baseMint.IsZero():
		pool, state, err = r.pools.FindPoolWithRetry(ctx, baseMint)
	default:
		return nil, errors.New("either pool or base mint is required")
	}
	if err != nil {
		return nil, err
	}

	reserves, err := r.pools.FetchReserves(ctx, state)
	if err != nil {
		return nil, err
	}
	r.metrics.UpdatePoolReserves(pool.String(), reserves.Base, reserves.Quote)

	report := &PoolReport{Address: pool, State: state, Reserves: reserves}
	if r.wallet == nil {
		return report, nil
	}

	accounts, err := pumpswap.DeriveBuyAccounts(r.protocol, state, r.wallet.PublicKey)
	if err != nil {
		return nil, err
	}
	// кэш кошелька должен совпадать с выводом для программы пула
	if ata, err := r.wallet.GetATA(state.BaseMint); err == nil && !ata.Equals(accounts.UserBaseATA) {
		r.logger.Warn("Wallet ATA differs from derived ATA",
			zap.String("wallet_ata", ata.String()),
			zap.String("derived_ata", accounts.UserBaseATA.String()))
	}
	funding, err := r.recovery.DefaultAccount()
	if err != nil {
		return nil, err
	}
	report.Accounts = &accounts
	report.FundingAccount = funding
	return report, nil
}

// CloseWSOL закрывает оставшийся WSOL аккаунт; нулевой account означает аккаунт по умолчанию.
func (r *Runner) CloseWSOL(ctx context.Context, account solana.PublicKey) (solana.Signature, error) {
	if r.recovery == nil {
		return solana.Signature{}, ErrNoWallet
	}
	sig, err := r.recovery.CloseLeftover(ctx, account)
	if err != nil {
		if !errors.Is(err, pumpswap.ErrNothingToClose) {
			r.logger.LogError("Close wsol failed", err)
		}
		return solana.Signature{}, err
	}
	r.logger.WithTransaction(sig.String()).Info("Leftover wsol account closed")
	return sig, nil
}

// Shutdown сбрасывает и закрывает логгер.
func (r *Runner) Shutdown() {
	r.logger.Info("Bot shutting down")
	if err := r.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close logger during shutdown: %v\n", err)
	}
}
