package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/finality"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "rpc_url: https://rpc.example.com\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.FeeOracleURL)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultConfirmTimeoutMs, cfg.ConfirmTimeoutMs)
	assert.Equal(t, []uint32{3012}, cfg.FatalProgramCodes)
	assert.Equal(t, finality.DefaultProfile, cfg.Profile())
	assert.Equal(t, 60*time.Second, cfg.LookupCacheTTL())

	exec := cfg.Execution()
	assert.Equal(t, fee.TierMin, exec.FeeTier)
	assert.Equal(t, 10*time.Second, exec.ConfirmTimeout)
	assert.Equal(t, 12, exec.MaxRetries)
}

func TestLoadConfigFileValues(t *testing.T) {
	path := writeConfig(t, `
rpc_url: https://rpc.example.com
fee_oracle_url: https://oracle.example.com
fee_tier: ultra
fee_ceiling_sol: 0.0005
max_retries: 5
confirm_timeout_ms: 2500
finality_phases:
  - polls: 2
    interval_ms: 100
  - polls: 1
    interval_ms: 200
fatal_program_codes: [3012, 6001]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://oracle.example.com", cfg.FeeOracleURL)

	exec := cfg.Execution()
	assert.Equal(t, fee.TierUltra, exec.FeeTier)
	assert.InDelta(t, 0.0005, exec.FeeCeilingSOL, 1e-12)
	assert.Equal(t, 5, exec.MaxRetries)
	assert.Equal(t, 2500*time.Millisecond, exec.ConfirmTimeout)
	assert.Equal(t, []uint32{3012, 6001}, exec.FatalCodes)
	assert.Equal(t, finality.Profile{
		{Polls: 2, Interval: 100 * time.Millisecond},
		{Polls: 1, Interval: 200 * time.Millisecond},
	}, cfg.Profile())
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SOLANA_RELAY_RPC_URL", "http://localhost:8899")
	t.Setenv("SOLANA_RELAY_PRIVATE_KEY", "secret")
	t.Setenv("SOLANA_RELAY_MAX_RETRIES", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPCURL)
	assert.Equal(t, "secret", cfg.PrivateKey)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"missing rpc":      "fee_tier: min\n",
		"bad scheme":       "rpc_url: ftp://rpc.example.com\n",
		"unknown tier":     "rpc_url: https://rpc.example.com\nfee_tier: turbo\n",
		"zero retries":     "rpc_url: https://rpc.example.com\nmax_retries: 0\n",
		"negative ceiling": "rpc_url: https://rpc.example.com\nfee_ceiling_sol: -1\n",
		"decreasing phases": `rpc_url: https://rpc.example.com
finality_phases:
  - {polls: 2, interval_ms: 500}
  - {polls: 2, interval_ms: 100}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
