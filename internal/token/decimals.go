package token

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	tokenprog "github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/cache"
)

const mintKeyPrefix = "mint:"

// ErrMintNotFound возвращается, если аккаунта mint нет в сети.
var ErrMintNotFound = errors.New("mint account not found")

// DecimalsResolver возвращает точность mint, используя кеш как подсказку.
type DecimalsResolver struct {
	accounts blockchain.AccountFetcher
	cache    *cache.Lookup
	logger   *zap.Logger
}

// NewDecimalsResolver создает резолвер; lookup может быть nil.
func NewDecimalsResolver(accounts blockchain.AccountFetcher, lookup *cache.Lookup, logger *zap.Logger) *DecimalsResolver {
	return &DecimalsResolver{
		accounts: accounts,
		cache:    lookup,
		logger:   logger.Named("decimals"),
	}
}

// Decimals returns the mint's decimals. SOL and USDC never hit the network.
func (r *DecimalsResolver) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	switch {
	case IsSOL(mint):
		return SOLDecimals, nil
	case IsUSDC(mint):
		return USDCDecimals, nil
	}

	key := mintKeyPrefix + mint.String()
	if v, ok := r.cache.Get(key); ok && len(v) == 1 {
		return v[0], nil
	}

	data, err := r.accounts.GetAccountData(ctx, mint)
	if blockchain.IsAccountNotFound(err) {
		return 0, fmt.Errorf("%w: %s: %w", ErrMintNotFound, mint, err)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch mint %s: %w", mint, err)
	}

	var m tokenprog.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	if !m.IsInitialized || m.Decimals == 0 {
		return 0, fmt.Errorf("bad decimals in mint %s", mint)
	}

	r.logger.Debug("Resolved mint decimals", zap.String("mint", mint.String()), zap.Uint8("decimals", m.Decimals))
	r.cache.Set(key, []byte{m.Decimals})
	return m.Decimals, nil
}
