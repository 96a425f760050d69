// internal/submit/errors.go
package submit

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/txbuilder"
)

var (
	// ErrFeeEstimation - оракул недоступен или ответ некорректен. Проваливает попытку, но не отправку.
	ErrFeeEstimation = fee.ErrFeeEstimation

	// ErrInvalidFee - нечисловое или отрицательное значение комиссии. Фатально.
	ErrInvalidFee = fee.ErrInvalidFee

	// ErrSizeLimitExceeded - версионная транзакция превышает лимит размера. Фатально, не повторяется.
	ErrSizeLimitExceeded = txbuilder.ErrSizeLimitExceeded

	// ErrLookupTable - таблица адресов отсутствует или повреждена. Фатально, не повторяется.
	ErrLookupTable = txbuilder.ErrLookupTable

	// ErrInvalidConfig - некорректные параметры отправки (например, неизвестный уровень комиссии).
	ErrInvalidConfig = errors.New("invalid execution config")

	// ErrFatalProgram - известный неустранимый код ошибки программы.
	ErrFatalProgram = errors.New("fatal program error")

	// ErrTransientProgram - любая другая ошибка программы при подтверждении.
	ErrTransientProgram = errors.New("transient program error")

	// ErrExhaustedRetries - все попытки и финальная проверка ничего не нашли.
	ErrExhaustedRetries = errors.New("exhausted retries")

	// ErrCancelled - вызывающий отменил отправку, финальная проверка ничего не нашла.
	ErrCancelled = errors.New("submission cancelled")

	errConfirmTimeout = errors.New("confirmation timeout")
)

// Error - терминальная ошибка отправки с количеством попыток и последней причиной.
type Error struct {
	Kind      error
	Attempts  int
	Signature solana.Signature
	Cause     error
	History   []AttemptRecord
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if errors.Is(e.Kind, ErrCancelled) {
		if e.Signature.IsZero() {
			return fmt.Sprintf("transaction submission cancelled after %d attempts: %v", e.Attempts, e.Cause)
		}
		return fmt.Sprintf("transaction submission cancelled after %d attempts, last signature %s still unconfirmed: %v",
			e.Attempts, e.Signature, e.Cause)
	}
	return fmt.Sprintf("transaction failed after %d attempts. Last error: %v", e.Attempts, e.Cause)
}

// Unwrap exposes both the taxonomy kind and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// kindOf maps a fatal cause to its taxonomy member.
func kindOf(err error) error {
	for _, kind := range []error{ErrSizeLimitExceeded, ErrLookupTable, ErrInvalidFee, ErrInvalidConfig, ErrFatalProgram} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrFatalProgram
}

// IsFatal reports whether err aborts the whole submission without retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSizeLimitExceeded) ||
		errors.Is(err, ErrLookupTable) ||
		errors.Is(err, ErrInvalidFee) ||
		errors.Is(err, ErrFatalProgram)
}
