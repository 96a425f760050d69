// internal/fee/estimator.go
package fee

import (
	"fmt"
	"math"
	"strings"
)

// Tier определяет агрессивность приоритетной комиссии.
type Tier string

const (
	TierMin     Tier = "min"
	TierDynamic Tier = "dynamic"
	TierHigh    Tier = "high"
	TierUltra   Tier = "ultra"
)

const (
	lamportsPerSOL      = 1_000_000_000
	microLamportsPerLam = 1_000
)

var (
	// MinFeeFloor - нижняя граница комиссии, 0.000001 SOL в микролампортах.
	MinFeeFloor = SOLToMicroLamports(0.000_001)

	// DefaultFeeCeiling - верхняя граница по умолчанию, 0.001 SOL в микролампортах.
	DefaultFeeCeiling = SOLToMicroLamports(0.001)
)

// DefaultMultipliers строго возрастают: min < dynamic < high < ultra.
var DefaultMultipliers = map[Tier]float64{
	TierMin:     0.001,
	TierDynamic: 0.01,
	TierHigh:    0.1,
	TierUltra:   1,
}

// ParseTier разбирает имя уровня; пустая строка означает TierMin.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TierMin, nil
	case TierMin, TierDynamic, TierHigh, TierUltra:
		return t, nil
	default:
		return "", fmt.Errorf("unknown fee tier %q", s)
	}
}

// SOLToMicroLamports конвертирует SOL в микролампорты.
func SOLToMicroLamports(sol float64) uint64 {
	return uint64(math.Floor(sol * lamportsPerSOL * microLamportsPerLam))
}

// LamportsToSOL конвертирует лампорты в SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / lamportsPerSOL
}

// CeilingFromSOL переводит явный потолок в микролампорты. Ноль означает потолок по умолчанию.
func CeilingFromSOL(sol float64) (uint64, error) {
	if math.IsNaN(sol) || math.IsInf(sol, 0) || sol < 0 {
		return 0, fmt.Errorf("%w: fee ceiling %v SOL", ErrInvalidFee, sol)
	}
	ceiling := SOLToMicroLamports(sol)
	// ноль зарезервирован за потолком по умолчанию
	if sol > 0 && ceiling == 0 {
		return 0, fmt.Errorf("%w: fee ceiling %v SOL is below one micro-lamport", ErrInvalidFee, sol)
	}
	return ceiling, nil
}

// Estimator - чистая функция от уровней оракула, уровня и потолка к комиссии.
type Estimator struct {
	Floor       uint64
	Ceiling     uint64
	Multipliers map[Tier]float64
}

// DefaultEstimator возвращает оценщик с глобальными константами.
func DefaultEstimator() Estimator {
	return Estimator{
		Floor:       MinFeeFloor,
		Ceiling:     DefaultFeeCeiling,
		Multipliers: DefaultMultipliers,
	}
}

func (e Estimator) ceiling(override uint64) uint64 {
	if override > 0 {
		return override
	}
	if e.Ceiling > 0 {
		return e.Ceiling
	}
	return DefaultFeeCeiling
}

func (e Estimator) multiplier(tier Tier) float64 {
	table := e.Multipliers
	if table == nil {
		table = DefaultMultipliers
	}
	if m, ok := table[tier]; ok {
		return m
	}
	return table[TierMin]
}

// clamp applies the floor first and the ceiling last, so a ceiling below the floor wins.
func (e Estimator) clamp(v float64, ceiling uint64) uint64 {
	v = math.Max(v, float64(e.Floor))
	v = math.Min(v, float64(ceiling))
	return uint64(v)
}

// Estimate computes clamp(max(high, floor) * multiplier[tier], floor, ceiling).
// ceilingOverride == 0 selects the estimator's ceiling.
func (e Estimator) Estimate(levels Levels, tier Tier, ceilingOverride uint64) (uint64, error) {
	high, ok := levels.High()
	if !ok {
		return 0, fmt.Errorf("%w: missing %q level", ErrFeeEstimation, LevelHigh)
	}
	if math.IsNaN(high) || math.IsInf(high, 0) || high < 0 {
		return 0, fmt.Errorf("%w: oracle high level %v", ErrInvalidFee, high)
	}

	base := math.Max(high, float64(e.Floor))
	mult := e.multiplier(tier)
	fee := math.Floor(base * mult)
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 {
		return 0, fmt.Errorf("%w: %v * %v", ErrInvalidFee, base, mult)
	}

	return e.clamp(fee, e.ceiling(ceilingOverride)), nil
}

// Escalate computes clamp(base * 2^attempt, floor, ceiling); it never exceeds the ceiling.
func (e Estimator) Escalate(base uint64, attempt int, ceilingOverride uint64) (uint64, error) {
	if attempt < 0 {
		return 0, fmt.Errorf("%w: negative attempt %d", ErrInvalidFee, attempt)
	}
	fee := math.Floor(math.Ldexp(float64(base), attempt))
	if math.IsNaN(fee) {
		return 0, fmt.Errorf("%w: escalation of %d at attempt %d", ErrInvalidFee, base, attempt)
	}
	return e.clamp(fee, e.ceiling(ceilingOverride)), nil
}
