package submit

import (
	"fmt"
	"time"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/txbuilder"
)

const (
	DefaultMaxRetries     = 12
	DefaultConfirmTimeout = 10 * time.Second
)

// DefaultFatalCodes: 3012 означает, что предусловие операции нарушено навсегда.
var DefaultFatalCodes = []uint32{3012}

// ExecutionConfig - неизменяемые параметры одной отправки.
type ExecutionConfig struct {
	FeeTier fee.Tier
	// FeeCeilingSOL - явный потолок комиссии; 0 означает глобальный.
	FeeCeilingSOL  float64
	MaxRetries     int
	ConfirmTimeout time.Duration
	ComputeUnits   uint32
	// FatalCodes - коды ошибок программы, прекращающие отправку. nil - DefaultFatalCodes.
	FatalCodes []uint32
}

// DefaultExecutionConfig returns the min tier with the default retry budget.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		FeeTier:        fee.TierMin,
		MaxRetries:     DefaultMaxRetries,
		ConfirmTimeout: DefaultConfirmTimeout,
	}
}

// resolve fills defaults and converts the ceiling. An unknown tier is a config error,
// a bad ceiling is an invalid fee.
func (c ExecutionConfig) resolve() (ExecutionConfig, txbuilder.FeeParams, map[uint32]struct{}, error) {
	tier, err := fee.ParseTier(string(c.FeeTier))
	if err != nil {
		return c, txbuilder.FeeParams{}, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.FeeTier = tier
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.FatalCodes == nil {
		c.FatalCodes = DefaultFatalCodes
	}

	ceiling, err := fee.CeilingFromSOL(c.FeeCeilingSOL)
	if err != nil {
		return c, txbuilder.FeeParams{}, nil, err
	}

	codes := make(map[uint32]struct{}, len(c.FatalCodes))
	for _, code := range c.FatalCodes {
		codes[code] = struct{}{}
	}
	return c, txbuilder.FeeParams{
		Tier:         tier,
		Ceiling:      ceiling,
		ComputeUnits: c.ComputeUnits,
	}, codes, nil
}
