package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// VersionedBuilder собирает v0-транзакцию с таблицами адресов и проверяет лимит размера.
type VersionedBuilder struct {
	instructions []solana.Instruction
	tables       []solana.PublicKey
	signer       Signer
	pricer       *Pricer
	resolver     *TableResolver
	logger       *zap.Logger
}

// NewVersioned создает билдер версионной формы. resolver может быть nil, если таблиц нет.
func NewVersioned(
	instructions []solana.Instruction,
	tables []solana.PublicKey,
	signer Signer,
	pricer *Pricer,
	resolver *TableResolver,
	logger *zap.Logger,
) (*VersionedBuilder, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	if err := ValidateInstructions(instructions, signer.PublicKey()); err != nil {
		return nil, err
	}
	if len(tables) > 0 && resolver == nil {
		return nil, fmt.Errorf("address tables given without a resolver")
	}
	return &VersionedBuilder{
		instructions: instructions,
		tables:       tables,
		signer:       signer,
		pricer:       pricer,
		resolver:     resolver,
		logger:       logger.Named("tx-builder"),
	}, nil
}

func (b *VersionedBuilder) compile(instructions []solana.Instruction, blockhash solana.Hash, tables map[solana.PublicKey]solana.PublicKeySlice) (*solana.Transaction, error) {
	opts := []solana.TransactionOption{solana.TransactionPayer(b.signer.PublicKey())}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, err
	}
	if !tx.Message.IsVersioned() {
		tx.Message.SetVersion(solana.MessageVersionV0)
	}
	return tx, nil
}

func checkSize(tx *solana.Transaction) (int, error) {
	_, size, err := EncodeDraft(tx)
	if err != nil {
		return 0, fmt.Errorf("serialize transaction: %w", err)
	}
	if size > MaxTransactionSize {
		return size, fmt.Errorf("%w: %d > %d bytes", ErrSizeLimitExceeded, size, MaxTransactionSize)
	}
	return size, nil
}

// Build компилирует сообщение, оценивает комиссию по черновику, добавляет
// инструкцию приоритета и отклоняет транзакцию, превышающую MaxTransactionSize.
func (b *VersionedBuilder) Build(ctx context.Context, req Request) (*Built, error) {
	var tables map[solana.PublicKey]solana.PublicKeySlice
	if len(b.tables) > 0 {
		var err error
		tables, err = b.resolver.Resolve(ctx, b.tables)
		if err != nil {
			return nil, err
		}
	}

	draft, err := b.compile(b.instructions, req.Anchor.Blockhash, tables)
	if err != nil {
		return nil, fmt.Errorf("compile draft message: %w", err)
	}
	// the draft is already too large: skip the oracle call
	if _, err := checkSize(draft); err != nil {
		return nil, err
	}

	base, adjusted, err := b.pricer.Price(ctx, draft, req)
	if err != nil {
		return nil, err
	}

	instructions := append(budgetInstructions(adjusted, req.Fee.ComputeUnits), b.instructions...)
	tx, err := b.compile(instructions, req.Anchor.Blockhash, tables)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}

	size, err := checkSize(tx)
	if err != nil {
		b.logger.Warn("Transaction too large", zap.Int("size", size), zap.Int("limit", MaxTransactionSize))
		return nil, err
	}
	b.logger.Debug("Final transaction size", zap.Int("size", size), zap.Int("lookups", len(tx.Message.AddressTableLookups)))

	raw, err := sign(tx, b.signer)
	if err != nil {
		return nil, err
	}

	return &Built{
		Tx:      tx,
		Raw:     raw,
		BaseFee: base,
		Fee:     adjusted,
		Size:    len(raw),
	}, nil
}

var _ Builder = (*VersionedBuilder)(nil)
