package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/cache"
)

const tableKeyPrefix = "alt:"

// TableResolver загружает содержимое таблиц адресов, используя кеш как подсказку.
type TableResolver struct {
	accounts blockchain.AccountFetcher
	cache    *cache.Lookup
	logger   *zap.Logger
}

// NewTableResolver создает резолвер; cache может быть nil.
func NewTableResolver(accounts blockchain.AccountFetcher, lookup *cache.Lookup, logger *zap.Logger) *TableResolver {
	return &TableResolver{
		accounts: accounts,
		cache:    lookup,
		logger:   logger.Named("alt-resolver"),
	}
}

// Resolve returns the addresses stored in each table.
func (r *TableResolver) Resolve(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
	for _, table := range tables {
		addresses, err := r.resolveOne(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("resolve address table %s: %w", table, err)
		}
		out[table] = addresses
	}
	return out, nil
}

func (r *TableResolver) resolveOne(ctx context.Context, table solana.PublicKey) (solana.PublicKeySlice, error) {
	key := tableKeyPrefix + table.String()
	if raw, ok := r.cache.Get(key); ok {
		state, err := addresslookuptable.DecodeAddressLookupTableState(raw)
		if err == nil {
			return state.Addresses, nil
		}
		r.logger.Debug("Dropping undecodable cached table", zap.String("table", table.String()), zap.Error(err))
		r.cache.Delete(key)
	}

	raw, err := r.accounts.GetAccountData(ctx, table)
	if err != nil {
		if blockchain.IsAccountNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrLookupTable, err)
		}
		return nil, err
	}
	state, err := addresslookuptable.DecodeAddressLookupTableState(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLookupTable, err)
	}
	r.cache.Set(key, raw)
	return state.Addresses, nil
}
