// internal/dex/pumpswap/pipeline.go
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

	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpswap-buyer/internal/utils/metrics"
)

// Transport is the part of the RPC client the pipeline needs.
type Transport interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Signer signs a transaction with the payer key.
type Signer interface {
	SignTransaction(tx *solana.Transaction) error
}

// Submission attempt outcomes reported to metrics.
const (
	attemptSent   = "sent"
	attemptRetry  = "retry"
	attemptFailed = "failed"
)

// PipelineOptions управляет повторными попытками отправки.
type PipelineOptions struct {
	MaxAttempts     uint
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Commitment      rpc.CommitmentType
}

// DefaultPipelineOptions возвращает настройки по умолчанию.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		MaxAttempts:     3,
		MaxElapsed:      15 * time.Second,
		InitialInterval: 300 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		Commitment:      rpc.CommitmentConfirmed,
	}
}

// Pipeline signs, sends and confirms instruction plans.
type Pipeline struct {
	client  Transport
	signer  Signer
	opts    PipelineOptions
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewPipeline(client Transport, signer Signer, opts PipelineOptions, logger *zap.Logger, collector *metrics.Collector) *Pipeline {
	defaults := DefaultPipelineOptions()
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = defaults.MaxElapsed
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaults.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaults.MaxInterval
	}
	if opts.Commitment == "" {
		opts.Commitment = defaults.Commitment
	}
	return &Pipeline{
		client:  client,
		signer:  signer,
		opts:    opts,
		logger:  logger.Named("pipeline"),
		metrics: collector,
	}
}

// Submit validates the plan, sends it and waits for confirmation.
// An on-chain slippage failure is returned as a ConfirmationError wrapping
// a SlippageExceededError.
func (p *Pipeline) Submit(ctx context.Context, plan *InstructionPlan) (solana.Signature, error) {
	if plan == nil {
		return solana.Signature{}, &AssemblyError{Step: "order", Err: errors.New("plan is nil")}
	}
	if err := plan.Validate(); err != nil {
		return solana.Signature{}, &AssemblyError{Step: "order", Err: err}
	}

	sig, err := p.SubmitInstructions(ctx, plan.Payer(), plan.Instructions())
	if err == nil {
		return sig, nil
	}

	var confErr *ConfirmationError
	if errors.As(err, &confErr) && IsSlippageExceededError(confErr.Err) {
		funding := plan.Funding()
		confErr.Err = &SlippageExceededError{
			MaxQuoteIn:    funding.Lamports - funding.Rent,
			OriginalError: confErr.Err,
		}
	}
	return sig, err
}

// SubmitInstructions sends instructions paid by payer.
// The transaction is signed once and retries resend the same bytes, so all
// attempts share one signature. It is rebuilt with a fresh blockhash only when
// the node reports BlockhashNotFound and does not know the signature.
func (p *Pipeline) SubmitInstructions(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction) (solana.Signature, error) {
	if len(instructions) == 0 {
		return solana.Signature{}, &AssemblyError{Step: "order", Err: errors.New("no instructions")}
	}

	s := &submission{pipeline: p, payer: payer, instructions: instructions}
	send := func() (solana.Signature, error) {
		s.attempts++
		sig, err := s.attempt(ctx)
		if err == nil {
			p.metrics.RecordSubmissionAttempt(attemptSent)
			return sig, nil
		}
		if !solbc.IsRetryableError(err) {
			p.metrics.RecordSubmissionAttempt(attemptFailed)
			return solana.Signature{}, backoff.Permanent(err)
		}
		p.metrics.RecordSubmissionAttempt(attemptRetry)
		return solana.Signature{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.InitialInterval
	policy.MaxInterval = p.opts.MaxInterval

	sig, err := backoff.Retry(ctx, send,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.opts.MaxAttempts),
		backoff.WithMaxElapsedTime(p.opts.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("Transaction send failed, retrying",
				zap.Int("attempt", s.attempts),
				zap.String("signature", s.lastSent.String()),
				zap.Duration("next_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return solana.Signature{}, &SubmissionError{Attempts: s.attempts, Signature: s.lastSent, Err: err}
	}

	p.logger.Info("Transaction sent",
		zap.String("signature", sig.String()),
		zap.Int("attempts", s.attempts),
		zap.Int("signed", s.signed))

	if err := p.client.WaitForTransactionConfirmation(ctx, sig, p.opts.Commitment); err != nil {
		p.logger.Error("Transaction not confirmed",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return sig, &ConfirmationError{Signature: sig, Err: err}
	}

	p.logger.Info("Transaction confirmed", zap.String("signature", sig.String()))
	return sig, nil
}

// submission держит подписанную транзакцию между попытками.
type submission struct {
	pipeline     *Pipeline
	payer        solana.PublicKey
	instructions []solana.Instruction

	tx       *solana.Transaction
	attempts int
	signed   int
	lastSent solana.Signature
}

// attempt sends the signed transaction, building it first when there is none.
func (s *submission) attempt(ctx context.Context) (solana.Signature, error) {
	if s.tx == nil {
		tx, err := s.pipeline.build(ctx, s.payer, s.instructions)
		if err != nil {
			return solana.Signature{}, err
		}
		s.tx = tx
		s.signed++
	}

	sig := s.tx.Signatures[0]
	s.lastSent = sig
	_, err := s.pipeline.client.SendTransactionWithOpts(ctx, s.tx, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: s.pipeline.opts.Commitment,
	})
	switch {
	case err == nil:
		return sig, nil
	case solbc.IsAlreadyProcessedError(err):
		s.pipeline.logger.Info("Transaction already processed", zap.String("signature", sig.String()))
		return sig, nil
	case solbc.IsBlockhashNotFoundError(err):
		known, statusErr := s.pipeline.signatureKnown(ctx, sig)
		if statusErr != nil {
			return solana.Signature{}, fmt.Errorf("send transaction: %w; status of %s: %w", err, sig, statusErr)
		}
		if known {
			return sig, nil
		}
		// подпись неизвестна сети, можно переподписать
		s.tx = nil
	}
	return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
}

// build creates a transaction with a fresh blockhash and signs it.
func (p *Pipeline) build(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := p.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	if err := p.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if len(tx.Signatures) == 0 {
		return nil, errors.New("sign transaction: no signatures")
	}
	return tx, nil
}

// signatureKnown reports whether any node status exists for sig.
func (p *Pipeline) signatureKnown(ctx context.Context, sig solana.Signature) (bool, error) {
	res, err := p.client.GetSignatureStatuses(ctx, sig)
	if err != nil {
		return false, err
	}
	return res != nil && len(res.Value) > 0 && res.Value[0] != nil, nil
}
