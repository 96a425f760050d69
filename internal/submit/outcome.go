package submit

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
)

// OutcomeKind - результат фазы попытки.
type OutcomeKind int

const (
	Retryable OutcomeKind = iota
	Landed
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Landed:
		return "landed"
	case Fatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// Outcome - явный вариант вместо классификации через исключения.
type Outcome struct {
	Kind      OutcomeKind
	Signature solana.Signature
	Record    *blockchain.Record
	Err       error
}

func landed(sig solana.Signature, record *blockchain.Record) Outcome {
	return Outcome{Kind: Landed, Signature: sig, Record: record}
}

func fatal(err error) Outcome {
	return Outcome{Kind: Fatal, Err: err}
}

func retryable(err error) Outcome {
	return Outcome{Kind: Retryable, Err: err}
}

// AttemptRecord хранится только для диагностики и итоговой ошибки.
type AttemptRecord struct {
	Index     int
	Fee       uint64
	Signature solana.Signature
	Outcome   OutcomeKind
	Err       error
	Duration  time.Duration
}

// Result - успешная отправка.
type Result struct {
	Signature solana.Signature
	// Record заполнен, если посадка подтверждена поиском в леджере.
	Record   *blockchain.Record
	Attempts []AttemptRecord
}
