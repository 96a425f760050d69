// internal/txbuilder/builder.go
package txbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/fee"
)

// MaxTransactionSize - жёсткий лимит сети на размер сериализованной транзакции.
const MaxTransactionSize = 1232

var (
	// ErrSizeLimitExceeded возвращается, если версионная транзакция больше MaxTransactionSize.
	// Повтор не поможет: рост комиссии не уменьшит размер.
	ErrSizeLimitExceeded = errors.New("transaction size limit exceeded")

	// ErrLookupTable возвращается, если таблица адресов отсутствует или не декодируется.
	// Как и размер, это не исправляется повтором.
	ErrLookupTable = errors.New("address lookup table unavailable")

	// ErrNoSigner возвращается, если подписант не задан.
	ErrNoSigner = errors.New("signer with public key is required")

	// ErrNoInstructions возвращается для пустого списка инструкций.
	ErrNoInstructions = errors.New("no instructions provided")

	// ErrExtraSigners возвращается, если инструкции требуют подписей помимо плательщика.
	ErrExtraSigners = errors.New("instructions require signers other than the fee payer")
)

// Signer подписывает произвольные байты и предоставляет публичный ключ плательщика.
// solana.PrivateKey удовлетворяет этому интерфейсу.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// FeeParams - параметры комиссии одной отправки.
type FeeParams struct {
	Tier fee.Tier
	// Ceiling в микролампортах; 0 - глобальный потолок.
	Ceiling uint64
	// ComputeUnits > 0 добавляет инструкцию лимита вычислительных единиц.
	ComputeUnits uint32
}

// Request описывает одну попытку сборки.
type Request struct {
	Anchor  blockchain.Anchor
	Attempt int
	Fee     FeeParams
}

// Built - подписанная транзакция и её параметры для диагностики.
type Built struct {
	Tx      *solana.Transaction
	Raw     []byte
	BaseFee uint64
	Fee     uint64
	Size    int
}

// Builder собирает подписанную транзакцию для попытки.
type Builder interface {
	Build(ctx context.Context, req Request) (*Built, error)
}

// Pricer считает комиссию: оракул по черновику, уровень, затем эскалация 2^attempt.
type Pricer struct {
	oracle    fee.Oracle
	estimator fee.Estimator
	logger    *zap.Logger
}

// NewPricer создает Pricer.
func NewPricer(oracle fee.Oracle, estimator fee.Estimator, logger *zap.Logger) *Pricer {
	return &Pricer{
		oracle:    oracle,
		estimator: estimator,
		logger:    logger.Named("fee-pricer"),
	}
}

// Price returns the tier fee and the escalated fee for the attempt.
func (p *Pricer) Price(ctx context.Context, draft *solana.Transaction, req Request) (base, adjusted uint64, err error) {
	encoded, _, err := EncodeDraft(draft)
	if err != nil {
		return 0, 0, fmt.Errorf("encode draft transaction: %w", err)
	}

	levels, err := p.oracle.EstimateLevels(ctx, encoded)
	if err != nil {
		return 0, 0, err
	}

	base, err = p.estimator.Estimate(levels, req.Fee.Tier, req.Fee.Ceiling)
	if err != nil {
		return 0, 0, err
	}
	adjusted, err = p.estimator.Escalate(base, req.Attempt, req.Fee.Ceiling)
	if err != nil {
		return 0, 0, err
	}

	p.logger.Debug("Calculated fee",
		zap.String("tier", string(req.Fee.Tier)),
		zap.Int("attempt", req.Attempt),
		zap.Uint64("base_micro_lamports", base),
		zap.Uint64("adjusted_micro_lamports", adjusted))
	return base, adjusted, nil
}

// EncodeDraft serializes a transaction with zeroed signature slots and encodes it as base58.
func EncodeDraft(tx *solana.Transaction) (string, int, error) {
	draft := *tx
	draft.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := draft.MarshalBinary()
	if err != nil {
		return "", 0, err
	}
	return base58.Encode(raw), len(raw), nil
}

// PriorityInstruction строит инструкцию цены вычислительной единицы.
func PriorityInstruction(microLamports uint64) solana.Instruction {
	return computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build()
}

// Budget строит инструкцию лимита вычислительных единиц.
func Budget(units uint32) solana.Instruction {
	return computebudget.NewSetComputeUnitLimitInstruction(units).Build()
}

func budgetInstructions(microLamports uint64, units uint32) []solana.Instruction {
	out := []solana.Instruction{PriorityInstruction(microLamports)}
	if units > 0 {
		out = append(out, Budget(units))
	}
	return out
}

// ValidateInstructions проверяет, что единственный подписант - плательщик.
func ValidateInstructions(instructions []solana.Instruction, payer solana.PublicKey) error {
	if len(instructions) == 0 {
		return ErrNoInstructions
	}
	for i, ix := range instructions {
		if ix == nil {
			return fmt.Errorf("instruction %d is nil", i)
		}
		for _, meta := range ix.Accounts() {
			if meta != nil && meta.IsSigner && !meta.PublicKey.Equals(payer) {
				return fmt.Errorf("%w: instruction %d wants %s", ErrExtraSigners, i, meta.PublicKey)
			}
		}
	}
	return nil
}

// sign подписывает сообщение транзакции единственным подписантом.
func sign(tx *solana.Transaction, signer Signer) ([]byte, error) {
	if n := tx.Message.Header.NumRequiredSignatures; n != 1 {
		return nil, fmt.Errorf("%w: message requires %d signatures", ErrExtraSigners, n)
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(signer.PublicKey()) {
		return nil, fmt.Errorf("fee payer mismatch")
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signatures = []solana.Signature{sig}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	return raw, nil
}
