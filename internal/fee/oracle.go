// internal/fee/oracle.go
package fee

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

const estimateMethod = "getPriorityFeeEstimate"

// Level names returned by the oracle.
const (
	LevelMin       = "min"
	LevelLow       = "low"
	LevelMedium    = "medium"
	LevelHigh      = "high"
	LevelVeryHigh  = "veryHigh"
	LevelUnsafeMax = "unsafeMax"
)

// Levels maps a level name to a fee in micro-lamports per compute unit.
type Levels map[string]float64

// High returns the "high" level, the base for every tier.
func (l Levels) High() (float64, bool) {
	v, ok := l[LevelHigh]
	return v, ok
}

// Oracle estimates priority fee levels for a serialized draft transaction.
type Oracle interface {
	EstimateLevels(ctx context.Context, encodedTx string) (Levels, error)
}

type estimateOptions struct {
	IncludeAllPriorityFeeLevels bool `json:"includeAllPriorityFeeLevels"`
}

type estimateRequest struct {
	Transaction string          `json:"transaction"`
	Options     estimateOptions `json:"options"`
}

type estimateResult struct {
	PriorityFeeEstimate *float64 `json:"priorityFeeEstimate,omitempty"`
	PriorityFeeLevels   Levels   `json:"priorityFeeLevels"`
}

// OracleClient calls a getPriorityFeeEstimate JSON-RPC endpoint.
type OracleClient struct {
	rpc    jsonrpc.RPCClient
	logger *zap.Logger
}

// NewOracleClient creates an oracle client for the given endpoint.
func NewOracleClient(endpoint string, logger *zap.Logger) *OracleClient {
	return &OracleClient{
		rpc:    jsonrpc.NewClient(endpoint),
		logger: logger.Named("fee-oracle"),
	}
}

// EstimateLevels sends the draft transaction and returns all fee levels.
// Any transport failure or a response without the "high" level yields ErrFeeEstimation.
func (c *OracleClient) EstimateLevels(ctx context.Context, encodedTx string) (Levels, error) {
	params := []interface{}{
		estimateRequest{
			Transaction: encodedTx,
			Options:     estimateOptions{IncludeAllPriorityFeeLevels: true},
		},
	}

	var out *estimateResult
	if err := c.rpc.CallForInto(ctx, &out, estimateMethod, params); err != nil {
		c.logger.Error("Fee oracle call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFeeEstimation, err)
	}
	if out == nil || len(out.PriorityFeeLevels) == 0 {
		c.logger.Error("Fee oracle returned no priority fee levels")
		return nil, fmt.Errorf("%w: bad response, no priority fee levels", ErrFeeEstimation)
	}
	if _, ok := out.PriorityFeeLevels.High(); !ok {
		return nil, fmt.Errorf("%w: bad response, missing %q level", ErrFeeEstimation, LevelHigh)
	}

	c.logger.Debug("Fee oracle estimates", zap.Any("levels", out.PriorityFeeLevels))
	return out.PriorityFeeLevels, nil
}

var _ Oracle = (*OracleClient)(nil)
