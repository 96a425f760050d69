package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/submit"
	"github.com/rovshanmuradov/solana-relay/internal/utils/logger"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

func TestFlagsOverrideExecution(t *testing.T) {
	base := submit.DefaultExecutionConfig()

	got, err := (&globalFlags{}).apply(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	got, err = (&globalFlags{tier: "Ultra", ceilingSOL: 0.002, maxRetries: 5}).apply(base)
	require.NoError(t, err)
	assert.Equal(t, fee.TierUltra, got.FeeTier)
	assert.Equal(t, 0.002, got.FeeCeilingSOL)
	assert.Equal(t, 5, got.MaxRetries)

	_, err = (&globalFlags{tier: "turbo"}).apply(base)
	require.Error(t, err)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"memo", "transfer", "check", "batch", "auth"}, names)
}

func TestCheckRejectsBadSignature(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"check", "not-a-signature"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestTransferRequiresFlags(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"transfer", "--to", "x"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestParseKeys(t *testing.T) {
	keys, err := parseKeys([]string{"11111111111111111111111111111111"})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].IsZero())

	_, err = parseKeys([]string{"bad key"})
	require.Error(t, err)
}

func TestPrintAuth(t *testing.T) {
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, printAuth(cmd, w, "42"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "wallet: "+w.PublicKey.String(), lines[0])

	sig, err := solana.SignatureFromBase58(strings.TrimPrefix(lines[2], "signature: "))
	require.NoError(t, err)
	assert.True(t, sig.Verify(w.PublicKey, []byte(wallet.AuthMessage(w.PublicKey, "42"))))
}

func TestLogLanded(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}
	res := &submit.Result{
		Signature: solana.Signature{7, 7},
		Attempts:  []submit.AttemptRecord{{Index: 0}, {Index: 1}},
	}

	logLanded(log, "memo", res)

	entries := logs.FilterMessage("Transaction landed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, res.Signature.String(), fields["signature"])
	assert.Equal(t, "memo", fields["operation"])
	assert.Equal(t, int64(2), fields["attempts"])
}
