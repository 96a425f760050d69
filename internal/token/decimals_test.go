package token

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/cache"
)

type fakeAccounts struct {
	mu    sync.Mutex
	data  map[solana.PublicKey][]byte
	calls int
}

func (f *fakeAccounts) GetAccountData(_ context.Context, account solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	d, ok := f.data[account]
	if !ok {
		return nil, blockchain.ErrAccountNotFound
	}
	return d, nil
}

// mintData кодирует аккаунт SPL mint (82 байта).
func mintData(decimals uint8, initialized bool) []byte {
	data := make([]byte, 82)
	authority := solana.NewWallet().PublicKey()
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority[:])
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000)
	data[44] = decimals
	if initialized {
		data[45] = 1
	}
	binary.LittleEndian.PutUint32(data[46:50], 1)
	copy(data[50:82], authority[:])
	return data
}

func TestDecimalsShortcuts(t *testing.T) {
	accounts := &fakeAccounts{}
	r := NewDecimalsResolver(accounts, nil, zap.NewNop())

	d, err := r.Decimals(context.Background(), SOLMint)
	require.NoError(t, err)
	assert.Equal(t, SOLDecimals, d)

	d, err = r.Decimals(context.Background(), USDCMint)
	require.NoError(t, err)
	assert.Equal(t, USDCDecimals, d)
	assert.Zero(t, accounts.calls)
}

func TestDecimalsFromMintAccountIsCached(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	accounts := &fakeAccounts{data: map[solana.PublicKey][]byte{mint: mintData(8, true)}}
	lookup, err := cache.NewLookup(context.Background(), 0, zap.NewNop())
	require.NoError(t, err)
	defer lookup.Close()

	r := NewDecimalsResolver(accounts, lookup, zap.NewNop())
	for i := 0; i < 3; i++ {
		d, err := r.Decimals(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, uint8(8), d)
	}
	assert.Equal(t, 1, accounts.calls)
}

func TestDecimalsErrors(t *testing.T) {
	uninitialized := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()
	accounts := &fakeAccounts{data: map[solana.PublicKey][]byte{uninitialized: mintData(6, false)}}
	r := NewDecimalsResolver(accounts, nil, zap.NewNop())

	_, err := r.Decimals(context.Background(), uninitialized)
	assert.Error(t, err)

	_, err = r.Decimals(context.Background(), missing)
	assert.ErrorIs(t, err, ErrMintNotFound)
	assert.ErrorIs(t, err, blockchain.ErrAccountNotFound)
}

func TestDecimalsTransportErrorIsNotMissingMint(t *testing.T) {
	errTransport := errors.New("connection reset")
	accounts := accountsFunc(func(context.Context, solana.PublicKey) ([]byte, error) {
		return nil, errTransport
	})
	r := NewDecimalsResolver(accounts, nil, zap.NewNop())

	_, err := r.Decimals(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, errTransport)
	assert.NotErrorIs(t, err, ErrMintNotFound)
}

type accountsFunc func(ctx context.Context, account solana.PublicKey) ([]byte, error)

func (f accountsFunc) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	return f(ctx, account)
}
