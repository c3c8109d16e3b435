// internal/dex/pumpswap/quote.go
package pumpswap

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Reserves are the pool's token balances in UI units.
type Reserves struct {
	Base          float64
	Quote         float64
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// SwapQuote is the result of pricing a buy against current reserves.
type SwapQuote struct {
	// Price is the spot price of one base token in SOL.
	Price float64
	// BaseAmountOut is the expected output in base units, floor-truncated.
	BaseAmountOut uint64
	// MaxQuoteAmountIn is the slippage-inflated spend cap in lamports.
	MaxQuoteAmountIn uint64
}

var (
	oneUnit   = decimal.NewFromInt(1)
	maxUint64 = decimal.RequireFromString(strconv.FormatUint(math.MaxUint64, 10))
)

// CalculateBuyQuote prices spending spendSOL of the quote asset at the spot
// price quote/base. The spot price ignores the curve's price impact, so large
// spends relative to the reserves are only bounded by slippage.
func CalculateBuyQuote(reserves Reserves, spendSOL, slippage float64) (SwapQuote, error) {
	if reserves.Base == 0 {
		return SwapQuote{}, &QuoteError{Reason: "base reserve is zero"}
	}
	if !isFinitePositive(reserves.Base) || !isFinitePositive(reserves.Quote) {
		return SwapQuote{}, &QuoteError{
			Reason: fmt.Sprintf("invalid reserves base=%v quote=%v", reserves.Base, reserves.Quote),
		}
	}
	if !isFinitePositive(spendSOL) {
		return SwapQuote{}, &QuoteError{Reason: fmt.Sprintf("spend amount must be positive, got %v", spendSOL)}
	}
	if math.IsNaN(slippage) || math.IsInf(slippage, 0) || slippage < 0 {
		return SwapQuote{}, &QuoteError{Reason: fmt.Sprintf("slippage must be non-negative, got %v", slippage)}
	}

	base := decimal.NewFromFloat(reserves.Base)
	quote := decimal.NewFromFloat(reserves.Quote)
	spend := decimal.NewFromFloat(spendSOL)

	// spend / (quote/base) * 10^dec; частное усекается, без промежуточного округления
	out, _ := spend.Mul(base).Shift(int32(reserves.BaseDecimals)).QuoRem(quote, 0)
	maxIn := spend.Mul(oneUnit.Add(decimal.NewFromFloat(slippage))).Shift(9).Floor()

	baseOut, err := toUnits("base amount out", out)
	if err != nil {
		return SwapQuote{}, err
	}
	maxQuoteIn, err := toUnits("max quote amount in", maxIn)
	if err != nil {
		return SwapQuote{}, err
	}

	price, _ := quote.Div(base).Float64()
	return SwapQuote{
		Price:            price,
		BaseAmountOut:    baseOut,
		MaxQuoteAmountIn: maxQuoteIn,
	}, nil
}

func toUnits(name string, v decimal.Decimal) (uint64, error) {
	if v.LessThan(oneUnit) {
		return 0, &QuoteError{Reason: fmt.Sprintf("%s is not positive (%s)", name, v)}
	}
	if v.GreaterThan(maxUint64) {
		return 0, &QuoteError{Reason: fmt.Sprintf("%s overflows u64 (%s)", name, v)}
	}
	return v.BigInt().Uint64(), nil
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
