// internal/dex/pumpswap/buyer.go
package pumpswap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-buyer/internal/utils/metrics"
)

// RentSource returns the rent-exempt minimum for an account of dataSize bytes.
type RentSource interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// BuyRequest describes one buy of a base token for SOL.
type BuyRequest struct {
	// Pool may be zero; the pool is then located by BaseMint.
	Pool     solana.PublicKey
	BaseMint solana.PublicKey
	SpendSOL float64
	// Slippage as a fraction, 0.05 = 5%.
	Slippage float64
}

// Outcome is the result of a confirmed buy.
type Outcome struct {
	Signature      solana.Signature
	Pool           solana.PublicKey
	BaseMint       solana.PublicKey
	Reserves       Reserves
	Quote          SwapQuote
	FundingAccount solana.PublicKey
	CreatedATA     bool
	Duration       time.Duration
}

// Buyer runs the buy flow: locate or read the pool, quote, assemble, submit.
type Buyer struct {
	pools     *PoolManager
	assembler *Assembler
	pipeline  *Pipeline
	rent      RentSource
	payer     solana.PublicKey
	logger    *zap.Logger
	metrics   *metrics.Collector
}

func NewBuyer(
	pools *PoolManager,
	assembler *Assembler,
	pipeline *Pipeline,
	rent RentSource,
	payer solana.PublicKey,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Buyer {
	return &Buyer{
		pools:     pools,
		assembler: assembler,
		pipeline:  pipeline,
		rent:      rent,
		payer:     payer,
		logger:    logger.Named("buyer"),
		metrics:   collector,
	}
}

// Buy executes req. Every failure is one of the package's typed errors
// or ErrPoolNotFound.
func (b *Buyer) Buy(ctx context.Context, req BuyRequest) (outcome *Outcome, err error) {
	start := time.Now()
	defer func() {
		b.metrics.RecordTrade(TradeStatus(err), time.Since(start))
	}()

	if req.Pool.IsZero() && req.BaseMint.IsZero() {
		return nil, &AssemblyError{Step: "input", Err: errors.New("either pool or base mint is required")}
	}

	pool, state, err := b.resolvePool(ctx, req)
	if err != nil {
		return nil, err
	}

	reserves, err := b.pools.FetchReserves(ctx, state)
	if err != nil {
		return nil, err
	}
	b.metrics.UpdatePoolReserves(pool.String(), reserves.Base, reserves.Quote)

	quote, err := CalculateBuyQuote(reserves, req.SpendSOL, req.Slippage)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Buy quote",
		zap.String("pool", pool.String()),
		zap.Float64("price", quote.Price),
		zap.Uint64("base_amount_out", quote.BaseAmountOut),
		zap.Uint64("max_quote_amount_in", quote.MaxQuoteAmountIn))

	rent, err := b.rent.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
	if err != nil {
		return nil, &AssemblyError{Step: "rent", Err: err}
	}

	plan, err := b.assembler.Assemble(ctx, AssembleParams{
		Pool:               pool,
		State:              state,
		Quote:              quote,
		Payer:              b.payer,
		RentExemptLamports: rent,
	})
	if err != nil {
		return nil, err
	}

	sig, err := b.pipeline.Submit(ctx, plan)
	if err != nil {
		var slipErr *SlippageExceededError
		if errors.As(err, &slipErr) {
			slipErr.Slippage = req.Slippage
		}
		return nil, err
	}

	outcome = &Outcome{
		Signature:      sig,
		Pool:           pool,
		BaseMint:       state.BaseMint,
		Reserves:       reserves,
		Quote:          quote,
		FundingAccount: plan.Funding().Address,
		CreatedATA:     plan.CreatesATA(),
		Duration:       time.Since(start),
	}
	b.logger.Info("Buy confirmed",
		zap.String("signature", sig.String()),
		zap.String("pool", pool.String()),
		zap.Duration("duration", outcome.Duration))
	return outcome, nil
}

func (b *Buyer) resolvePool(ctx context.Context, req BuyRequest) (solana.PublicKey, *PoolState, error) {
	if req.Pool.IsZero() {
		return b.pools.FindPoolByBaseMint(ctx, req.BaseMint)
	}

	state, err := b.pools.FetchPoolState(ctx, req.Pool)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if !req.BaseMint.IsZero() && !state.BaseMint.Equals(req.BaseMint) {
		return solana.PublicKey{}, nil, &AssemblyError{
			Step: "input",
			Err:  fmt.Errorf("pool %s trades %s, not %s", req.Pool, state.BaseMint, req.BaseMint),
		}
	}
	return req.Pool, state, nil
}

// TradeStatus maps a buy error to its metrics label.
func TradeStatus(err error) string {
	var (
		decodeErr *DecodeError
		quoteErr  *QuoteError
		asmErr    *AssemblyError
		subErr    *SubmissionError
		slipErr   *SlippageExceededError
		confErr   *ConfirmationError
		derivErr  *DerivationError
	)
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, ErrPoolNotFound):
		return "pool_not_found"
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &derivErr):
		return "derivation_error"
	case errors.As(err, &quoteErr):
		return "quote_error"
	case errors.As(err, &asmErr):
		return "assembly_error"
	case errors.As(err, &subErr):
		return "submission_error"
	case errors.As(err, &slipErr):
		return "slippage_exceeded"
	case errors.As(err, &confErr):
		return "confirmation_error"
	default:
		return metrics.StatusFailed
	}
}
