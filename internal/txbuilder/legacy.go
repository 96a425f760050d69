package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// LegacyBuilder собирает простую транзакцию из списка инструкций.
type LegacyBuilder struct {
	instructions []solana.Instruction
	signer       Signer
	pricer       *Pricer
	logger       *zap.Logger
}

// NewLegacy создает билдер простой формы.
func NewLegacy(instructions []solana.Instruction, signer Signer, pricer *Pricer, logger *zap.Logger) (*LegacyBuilder, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	if err := ValidateInstructions(instructions, signer.PublicKey()); err != nil {
		return nil, err
	}
	return &LegacyBuilder{
		instructions: instructions,
		signer:       signer,
		pricer:       pricer,
		logger:       logger.Named("tx-builder"),
	}, nil
}

// Build сначала собирает черновик только из инструкций для оценки комиссии,
// затем пересобирает транзакцию с инструкцией приоритета в начале.
func (b *LegacyBuilder) Build(ctx context.Context, req Request) (*Built, error) {
	payer := solana.TransactionPayer(b.signer.PublicKey())

	draft, err := solana.NewTransaction(b.instructions, req.Anchor.Blockhash, payer)
	if err != nil {
		return nil, fmt.Errorf("create draft transaction: %w", err)
	}

	base, adjusted, err := b.pricer.Price(ctx, draft, req)
	if err != nil {
		return nil, err
	}

	instructions := append(budgetInstructions(adjusted, req.Fee.ComputeUnits), b.instructions...)
	tx, err := solana.NewTransaction(instructions, req.Anchor.Blockhash, payer)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	raw, err := sign(tx, b.signer)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Legacy tx fee calculation",
		zap.Uint64("base_micro_lamports", base),
		zap.Int64("multiplier", int64(1)<<uint(min(req.Attempt, 62))),
		zap.Uint64("adjusted_micro_lamports", adjusted),
		zap.Int("size", len(raw)))

	return &Built{
		Tx:      tx,
		Raw:     raw,
		BaseFee: base,
		Fee:     adjusted,
		Size:    len(raw),
	}, nil
}

var _ Builder = (*LegacyBuilder)(nil)
