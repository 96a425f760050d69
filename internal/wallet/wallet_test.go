package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteList(key solana.PrivateKey) string {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	out, _ := json.Marshal(ints)
	return string(out)
}

func TestParseKeyFormats(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	fromBase58, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, fromBase58)

	fromJSON, err := ParseKey(byteList(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromJSON)

	bare := strings.TrimSuffix(strings.TrimPrefix(byteList(key), "["), "]")
	fromBare, err := ParseKey(bare)
	require.NoError(t, err)
	assert.Equal(t, key, fromBare)
}

func TestParseKeyRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "  ", "NOT_SET"} {
		_, err := ParseKey(in)
		assert.ErrorIs(t, err, ErrBadKey, "input %q", in)
	}

	_, err := ParseKey("[1,2,3]")
	assert.Error(t, err)

	_, err = ParseKey("[1,2,300]")
	assert.Error(t, err)

	_, err = ParseKey("0OIl")
	assert.Error(t, err)
}

func TestWalletSignsAuthMessage(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w, err := NewWallet(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey)
	assert.Equal(t, key.PublicKey().String(), w.String())

	msg := AuthMessage(w.PublicKey, "42")
	assert.Equal(t, "I am the owner of "+w.PublicKey.String()+". This message is for Trade Relay only. [Request #42]", msg)

	sig, err := w.SignAuthMessage("42")
	require.NoError(t, err)
	assert.True(t, sig.Verify(w.PublicKey, []byte(msg)))
}

func TestGetATACaches(t *testing.T) {
	w, err := NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	first, err := w.GetATA(mint)
	require.NoError(t, err)
	second, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
	assert.Equal(t, first, second)
}

func TestLoadWallets(t *testing.T) {
	a := solana.NewWallet().PrivateKey
	b := solana.NewWallet().PrivateKey
	path := filepath.Join(t.TempDir(), "wallets.csv")
	content := "name,private_key\nalice," + a.String() + "\nbroken,xyz\nbob," + b.String() + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, a.PublicKey(), wallets["alice"].PublicKey)
	assert.Equal(t, b.PublicKey(), wallets["bob"].PublicKey)

	_, err = LoadWallets(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
