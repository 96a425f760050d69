// internal/token/amount.go
package token

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	SOLDecimals  uint8 = 9
	USDCDecimals uint8 = 6

	// FeeBps - комиссия сервиса в базисных пунктах (0.4%).
	FeeBps = 40
)

var (
	SOLMint  = solana.SolMint
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// ErrBadAmount возвращается для пустой суммы или нулевой точности.
var ErrBadAmount = errors.New("bad amount / decimals")

// IsSOL сообщает, является ли mint обёрнутым SOL.
func IsSOL(mint solana.PublicKey) bool { return mint.Equals(SOLMint) }

// IsUSDC сообщает, является ли mint USDC.
func IsUSDC(mint solana.PublicKey) bool { return mint.Equals(USDCMint) }

// ConvertAmount переводит десятичную строку в базовые единицы без потери точности.
// Лишние знаки дробной части отбрасываются.
func ConvertAmount(amount string, decimals uint8) (uint64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || decimals == 0 {
		return 0, fmt.Errorf("%w: %q with %d decimals", ErrBadAmount, amount, decimals)
	}

	whole, fraction, _ := strings.Cut(amount, ".")
	// дробная часть проверяется целиком, до отбрасывания лишних знаков
	if !isDigits(whole) || !isDigits(fraction) || whole+fraction == "" {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrBadAmount, amount)
	}
	if whole == "" {
		whole = "0"
	}
	if len(fraction) > int(decimals) {
		fraction = fraction[:decimals]
	}
	fraction += strings.Repeat("0", int(decimals)-len(fraction))

	v, err := strconv.ParseUint(whole+fraction, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadAmount, err)
	}
	return v, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ConvertLamports переводит сумму в SOL в лампорты.
func ConvertLamports(amount string) (uint64, error) {
	return ConvertAmount(amount, SOLDecimals)
}

// FormatAmount переводит базовые единицы в десятичную строку.
func FormatAmount(amount uint64, decimals uint8) string {
	s := strconv.FormatUint(amount, 10)
	if amount == 0 {
		return "0"
	}
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		return "0." + strings.Repeat("0", d-len(s)) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}

// RoundAmount округляет вниз до decimals знаков.
func RoundAmount(amount float64, decimals uint8) float64 {
	multi := math.Pow10(int(decimals))
	return math.Floor(amount*multi) / multi
}

// CalculateFeeAmounts делит сумму на комиссию FeeBps и остаток к переводу.
func CalculateFeeAmounts(amount string, decimals uint8) (feeAmount, transferAmount uint64, err error) {
	base, err := ConvertAmount(amount, decimals)
	if err != nil {
		return 0, 0, err
	}
	feeAmount = base/10_000*FeeBps + (base%10_000)*FeeBps/10_000
	return feeAmount, base - feeAmount, nil
}
