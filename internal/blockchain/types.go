// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrNotFound возвращается, когда транзакция не найдена в леджере.
	ErrNotFound = errors.New("transaction not found")

	// ErrAccountNotFound возвращается AccountFetcher, когда аккаунта нет.
	ErrAccountNotFound = errors.New("account not found")

	// ErrBlockhashExpired возвращается, когда высота блока превысила срок действия blockhash.
	ErrBlockhashExpired = errors.New("blockhash expired")
)

// IsAccountNotFound сообщает, что аккаунт отсутствует, а не что запрос сорвался.
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound)
}

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	MaxRetries          uint
}

// Anchor - свежий blockhash и последняя высота блока, на которой он валиден.
type Anchor struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Confirmation - результат ожидания подтверждения транзакции.
// Err содержит ошибку программы в том виде, в каком её вернул узел (nil при успехе).
type Confirmation struct {
	Signature solana.Signature
	Slot      uint64
	Err       interface{}
}

// Failed сообщает, завершилась ли транзакция ошибкой программы.
func (c *Confirmation) Failed() bool {
	return c != nil && c.Err != nil
}

// Record - транзакция, найденная в леджере.
type Record struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time
	Fee       uint64
	Err       interface{}
}

// Landed сообщает, что транзакция включена в блок без ошибки.
func (r *Record) Landed() bool {
	return r != nil && r.Err == nil
}

// AnchorSource выдаёт свежий blockhash для каждой попытки.
type AnchorSource interface {
	LatestAnchor(ctx context.Context) (Anchor, error)
}

// Broadcaster отправляет подписанные байты транзакции.
type Broadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts TransactionOptions) (solana.Signature, error)
}

// Confirmer ожидает подтверждения транзакции до истечения anchor.
type Confirmer interface {
	ConfirmTransaction(ctx context.Context, signature solana.Signature, anchor Anchor) (*Confirmation, error)
}

// TransactionFetcher ищет транзакцию по подписи. Отсутствие - ErrNotFound.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature solana.Signature) (*Record, error)
}

// AccountFetcher возвращает сырые данные аккаунта.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	AnchorSource
	Broadcaster
	Confirmer
	TransactionFetcher
	AccountFetcher
}
