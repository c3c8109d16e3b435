// =============================
// File: internal/dex/pumpswap/errors.go
// =============================
package pumpswap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Константы для кодов ошибок программы PumpSwap
const (
	SlippageExceededCode    = "0x1774"
	SlippageExceededCodeInt = 6004
)

var (
	ErrPoolNotFound   = errors.New("pool not found")
	ErrNothingToClose = errors.New("wsol account does not exist")
)

// DecodeError is returned when a pool account buffer cannot be decoded.
type DecodeError struct {
	Field  string
	Length int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode pool (%d bytes): field %s: %v", e.Length, e.Field, e.Err)
	}
	return fmt.Sprintf("decode pool (%d bytes): %v", e.Length, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DerivationError is returned when no off-curve program address exists for the seeds.
type DerivationError struct {
	Program solana.PublicKey
	Err     error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive address under %s: %v", e.Program, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// QuoteError covers zero reserves, invalid inputs and non-positive results.
type QuoteError struct {
	Reason string
	Err    error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote: %s: %v", e.Reason, e.Err)
	}
	return "quote: " + e.Reason
}

func (e *QuoteError) Unwrap() error { return e.Err }

// AssemblyError reports which step of instruction assembly failed.
type AssemblyError struct {
	Step string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Step, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// SubmissionError is returned when the transaction could not be sent.
type SubmissionError struct {
	Attempts int
	// Signature is the last signature handed to the node, zero when nothing was sent.
	// A timed out send may still land under it.
	Signature solana.Signature
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("submit transaction (attempts: %d): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("submit transaction %s (attempts: %d): %v", e.Signature, e.Attempts, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationError is returned when a sent transaction was not observed settled
// or settled with an error.
type ConfirmationError struct {
	Signature solana.Signature
	Err       error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("confirm transaction %s: %v", e.Signature, e.Err)
}

func (e *ConfirmationError) Unwrap() error { return e.Err }

// SlippageExceededError представляет ошибку превышения проскальзывания
type SlippageExceededError struct {
	Slippage      float64
	MaxQuoteIn    uint64
	OriginalError error
}

// IsSlippageExceededError определяет, является ли ошибка ошибкой превышения проскальзывания
func IsSlippageExceededError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ExceededSlippage") ||
		strings.Contains(msg, SlippageExceededCode) ||
		strings.Contains(msg, strconv.Itoa(SlippageExceededCodeInt))
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: pool required more than %d lamports (slippage %.2f%%): %v",
		e.MaxQuoteIn, e.Slippage*100, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}
