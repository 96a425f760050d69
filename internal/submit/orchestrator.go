// internal/submit/orchestrator.go
package submit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/finality"
	"github.com/rovshanmuradov/solana-relay/internal/txbuilder"
)

// sweepGrace добавляется к бюджету финальной проверки после отмены.
const sweepGrace = 2 * time.Second

// Network - сетевые операции одной попытки.
type Network interface {
	blockchain.AnchorSource
	blockchain.Broadcaster
	blockchain.Confirmer
}

// Orchestrator - цикл отправки с эскалацией комиссии и проверкой посадки.
type Orchestrator struct {
	net     Network
	checker *finality.Checker
	metrics *Metrics
	logger  *zap.Logger
}

// NewOrchestrator создает оркестратор. metrics может быть nil.
func NewOrchestrator(net Network, checker *finality.Checker, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		net:     net,
		checker: checker,
		metrics: metrics,
		logger:  logger.Named("submitter"),
	}
}

// submission - состояние одной отправки; попытки идут строго последовательно.
type submission struct {
	id      string
	builder txbuilder.Builder
	cfg     ExecutionConfig
	fee     txbuilder.FeeParams
	fatal   map[uint32]struct{}
	logger  *zap.Logger
	start   time.Time
	history []AttemptRecord
	lastSig solana.Signature
	lastErr error
}

// Submit builds, broadcasts and confirms a transaction, escalating the priority fee
// on every attempt. A signature from a previous attempt is always checked against
// the ledger before a new transaction is built.
func (o *Orchestrator) Submit(ctx context.Context, builder txbuilder.Builder, cfg ExecutionConfig) (*Result, error) {
	s := &submission{
		id:      uuid.NewString(),
		builder: builder,
		start:   time.Now(),
	}
	s.logger = o.logger.With(zap.String("submission_id", s.id))

	var err error
	s.cfg, s.fee, s.fatal, err = cfg.resolve()
	if err != nil {
		return nil, o.fail(s, err)
	}

	s.logger.Info("Starting submission",
		zap.String("tier", string(s.cfg.FeeTier)),
		zap.Int("max_retries", s.cfg.MaxRetries),
		zap.Duration("confirm_timeout", s.cfg.ConfirmTimeout))

	for i := 0; i < s.cfg.MaxRetries; i++ {
		if ctx.Err() != nil {
			return o.cancelled(ctx, s)
		}

		if !s.lastSig.IsZero() {
			if record := o.checker.Quick(ctx, s.lastSig); record != nil {
				o.metrics.trackFinalityHit("idempotency")
				out := s.classifyRecord(record)
				switch out.Kind {
				case Landed:
					s.logger.Info("Previous attempt already landed", zap.String("signature", s.lastSig.String()))
					return o.succeed(s, out), nil
				case Fatal:
					return nil, o.fail(s, out.Err)
				}
				// транзакция в леджере, но с ошибкой: новая попытка безопасна
			}
			if ctx.Err() != nil {
				return o.cancelled(ctx, s)
			}
		}

		attemptStart := time.Now()
		out, rec := o.attempt(ctx, s, i)
		rec.Outcome = out.Kind
		rec.Err = out.Err
		rec.Duration = time.Since(attemptStart)
		s.history = append(s.history, rec)

		switch out.Kind {
		case Landed:
			return o.succeed(s, out), nil
		case Fatal:
			return nil, o.fail(s, out.Err)
		}

		if ctx.Err() != nil {
			return o.cancelled(ctx, s)
		}
		s.lastErr = out.Err
		s.logger.Warn("Attempt failed",
			zap.Int("attempt", i+1),
			zap.String("signature", sigString(rec.Signature)),
			zap.Error(out.Err))
	}

	if !s.lastSig.IsZero() {
		s.logger.Info("Retries exhausted, running final finality sweep", zap.String("signature", s.lastSig.String()))
		if record := o.checker.Check(ctx, s.lastSig); record != nil {
			o.metrics.trackFinalityHit("sweep")
			out := s.classifyRecord(record)
			switch out.Kind {
			case Landed:
				return o.succeed(s, out), nil
			case Fatal:
				return nil, o.fail(s, out.Err)
			}
			s.lastErr = out.Err
		}
	}

	err = &Error{
		Kind:      ErrExhaustedRetries,
		Attempts:  len(s.history),
		Signature: s.lastSig,
		Cause:     s.lastErr,
		History:   s.history,
	}
	s.logger.Error("Submission exhausted retries", zap.Error(err))
	o.metrics.trackSubmission("exhausted", s.start)
	return nil, err
}

// attempt executes one build/broadcast/confirm cycle.
func (o *Orchestrator) attempt(ctx context.Context, s *submission, i int) (Outcome, AttemptRecord) {
	rec := AttemptRecord{Index: i}
	logger := s.logger.With(zap.Int("attempt", i+1), zap.Float64("multiplier", math.Ldexp(1, i)))
	o.metrics.trackAttempt()

	anchor, err := o.net.LatestAnchor(ctx)
	if err != nil {
		return retryable(fmt.Errorf("fetch anchor: %w", err)), rec
	}

	built, err := s.builder.Build(ctx, txbuilder.Request{Anchor: anchor, Attempt: i, Fee: s.fee})
	if err != nil {
		if IsFatal(err) {
			logger.Error("Build failed permanently", zap.Error(err))
			return fatal(err), rec
		}
		return retryable(fmt.Errorf("build transaction: %w", err)), rec
	}
	rec.Fee = built.Fee
	o.metrics.trackFee(built.Fee)

	sig, err := o.net.SendRawTransaction(ctx, built.Raw, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return retryable(fmt.Errorf("broadcast: %w", err)), rec
	}
	rec.Signature = sig
	s.lastSig = sig
	logger = logger.With(zap.String("signature", sig.String()))
	logger.Info("Transaction broadcast",
		zap.Uint64("fee_micro_lamports", built.Fee),
		zap.Int("size", built.Size))

	conf, err := firstToSettle(ctx, s.cfg.ConfirmTimeout, func(c context.Context) (*blockchain.Confirmation, error) {
		return o.net.ConfirmTransaction(c, sig, anchor)
	})
	switch {
	case err == nil && !conf.Failed():
		logger.Info("Transaction confirmed")
		return landed(sig, nil), rec

	case err == nil:
		out := s.classifyProgramError(conf.Err)
		if out.Kind == Fatal {
			logger.Error("Fatal program error", zap.Error(out.Err))
			return out, rec
		}
		logger.Warn("Transaction failed on chain", zap.Error(out.Err))
		if found, ok := o.recheck(ctx, s, sig, "program_error"); ok {
			return found, rec
		}
		return out, rec

	case ctx.Err() != nil:
		return retryable(ctx.Err()), rec

	case errors.Is(err, errConfirmTimeout):
		logger.Warn("Confirmation timed out", zap.Duration("timeout", s.cfg.ConfirmTimeout))

	default:
		logger.Warn("Confirmation failed", zap.Error(err))
	}

	if found, ok := o.recheck(ctx, s, sig, "timeout"); ok {
		return found, rec
	}
	return retryable(err), rec
}

// recheck runs the full finality profile; ok is false when nothing was located
// or the located record is merely retryable.
func (o *Orchestrator) recheck(ctx context.Context, s *submission, sig solana.Signature, stage string) (Outcome, bool) {
	record := o.checker.Check(ctx, sig)
	if record == nil {
		return Outcome{}, false
	}
	o.metrics.trackFinalityHit(stage)
	out := s.classifyRecord(record)
	return out, out.Kind != Retryable
}

func (s *submission) classifyRecord(record *blockchain.Record) Outcome {
	if record.Landed() {
		return landed(record.Signature, record)
	}
	return s.classifyProgramError(record.Err)
}

func (s *submission) classifyProgramError(raw interface{}) Outcome {
	if pe := blockchain.ParseProgramError(raw); pe != nil && pe.HasCustom {
		if _, ok := s.fatal[pe.Custom]; ok {
			return fatal(fmt.Errorf("%w: %s", ErrFatalProgram, pe))
		}
	}
	return retryable(fmt.Errorf("%w: %s", ErrTransientProgram, blockchain.DescribeTxError(raw)))
}

// cancelled runs one final sweep on a detached context so an aborted submission
// never leaves its last signature unresolved.
func (o *Orchestrator) cancelled(ctx context.Context, s *submission) (*Result, error) {
	cause := ctx.Err()
	if !s.lastSig.IsZero() {
		sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.checker.Profile().Budget()+sweepGrace)
		defer cancel()
		if record := o.checker.Check(sweepCtx, s.lastSig); record != nil {
			o.metrics.trackFinalityHit("cancel_sweep")
			if out := s.classifyRecord(record); out.Kind == Landed {
				return o.succeed(s, out), nil
			}
		}
	}

	err := &Error{
		Kind:      ErrCancelled,
		Attempts:  len(s.history),
		Signature: s.lastSig,
		Cause:     cause,
		History:   s.history,
	}
	s.logger.Warn("Submission cancelled", zap.Error(err))
	o.metrics.trackSubmission("cancelled", s.start)
	return nil, err
}

func (o *Orchestrator) succeed(s *submission, out Outcome) *Result {
	sig := out.Signature
	if sig.IsZero() {
		sig = s.lastSig
	}
	s.logger.Info("Submission landed",
		zap.String("signature", sig.String()),
		zap.Int("attempts", len(s.history)),
		zap.Duration("elapsed", time.Since(s.start)))
	o.metrics.trackSubmission("landed", s.start)
	return &Result{
		Signature: sig,
		Record:    out.Record,
		Attempts:  s.history,
	}
}

func (o *Orchestrator) fail(s *submission, cause error) error {
	err := &Error{
		Kind:      kindOf(cause),
		Attempts:  len(s.history),
		Signature: s.lastSig,
		Cause:     cause,
		History:   s.history,
	}
	s.logger.Error("Submission failed", zap.Error(err))
	o.metrics.trackSubmission("fatal", s.start)
	return err
}

func sigString(sig solana.Signature) string {
	if sig.IsZero() {
		return ""
	}
	return sig.String()
}
