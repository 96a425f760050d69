// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/finality"
	"github.com/rovshanmuradov/solana-relay/internal/submit"
)

type PhaseConfig struct {
	Polls      int `mapstructure:"polls"`
	IntervalMs int `mapstructure:"interval_ms"`
}

type Config struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	FeeOracleURL      string        `mapstructure:"fee_oracle_url"`
	PrivateKey        string        `mapstructure:"private_key"`
	FeeTier           string        `mapstructure:"fee_tier"`
	FeeCeilingSOL     float64       `mapstructure:"fee_ceiling_sol"`
	MaxRetries        int           `mapstructure:"max_retries"`
	ConfirmTimeoutMs  int           `mapstructure:"confirm_timeout_ms"`
	ComputeUnits      uint32        `mapstructure:"compute_units"`
	FinalityPhases    []PhaseConfig `mapstructure:"finality_phases"`
	FatalProgramCodes []uint32      `mapstructure:"fatal_program_codes"`
	LookupCacheTTLSec int           `mapstructure:"lookup_cache_ttl_sec"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
	DebugLogging      bool          `mapstructure:"debug_logging"`
	LogFile           string        `mapstructure:"log_file"`
}

const (
	DefaultMaxRetries        = submit.DefaultMaxRetries
	DefaultConfirmTimeoutMs  = 10000
	DefaultLookupCacheTTLSec = 60
	DefaultLogFile           = "relay.log"
	EnvPrefix                = "SOLANA_RELAY"
)

func defaultPhases() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(finality.DefaultProfile))
	for _, p := range finality.DefaultProfile {
		out = append(out, map[string]interface{}{
			"polls":       p.Polls,
			"interval_ms": int(p.Interval / time.Millisecond),
		})
	}
	return out
}

// LoadConfig читает файл конфигурации (path может быть пустым) и переменные окружения SOLANA_RELAY_*.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"fee_tier":             string(fee.TierMin),
		"fee_ceiling_sol":      0.0,
		"max_retries":          DefaultMaxRetries,
		"confirm_timeout_ms":   DefaultConfirmTimeoutMs,
		"finality_phases":      defaultPhases(),
		"fatal_program_codes":  submit.DefaultFatalCodes,
		"lookup_cache_ttl_sec": DefaultLookupCacheTTLSec,
		"log_file":             DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv не видит ключи без значения по умолчанию при Unmarshal
	for _, key := range []string{"rpc_url", "fee_oracle_url", "private_key", "metrics_addr", "debug_logging", "compute_units"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.FeeOracleURL == "" {
		cfg.FeeOracleURL = cfg.RPCURL
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if err := validateURLWithCache(cfg.FeeOracleURL, "http"); err != nil {
		return errors.New("invalid fee oracle URL protocol")
	}
	if _, err := fee.ParseTier(cfg.FeeTier); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	return validatePhases(cfg.FinalityPhases)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MaxRetries <= 0 {
		return errors.New("invalid max_retries")
	}
	if cfg.ConfirmTimeoutMs <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if cfg.FeeCeilingSOL < 0 {
		return errors.New("invalid fee_ceiling_sol")
	}
	if cfg.LookupCacheTTLSec < 0 {
		return errors.New("invalid lookup_cache_ttl_sec")
	}
	return nil
}

func validatePhases(phases []PhaseConfig) error {
	if len(phases) == 0 {
		return errors.New("finality_phases is empty")
	}
	prev := 0
	for i, p := range phases {
		if p.Polls <= 0 || p.IntervalMs <= 0 {
			return fmt.Errorf("invalid finality phase %d", i+1)
		}
		if p.IntervalMs < prev {
			return fmt.Errorf("finality phase %d interval decreases", i+1)
		}
		prev = p.IntervalMs
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// Profile переводит фазы в профиль FinalityChecker.
func (c *Config) Profile() finality.Profile {
	out := make(finality.Profile, 0, len(c.FinalityPhases))
	for _, p := range c.FinalityPhases {
		out = append(out, finality.Phase{
			Polls:    p.Polls,
			Interval: time.Duration(p.IntervalMs) * time.Millisecond,
		})
	}
	return out
}

// Execution собирает ExecutionConfig по умолчанию для команд.
func (c *Config) Execution() submit.ExecutionConfig {
	return submit.ExecutionConfig{
		FeeTier:        fee.Tier(strings.ToLower(c.FeeTier)),
		FeeCeilingSOL:  c.FeeCeilingSOL,
		MaxRetries:     c.MaxRetries,
		ConfirmTimeout: time.Duration(c.ConfirmTimeoutMs) * time.Millisecond,
		ComputeUnits:   c.ComputeUnits,
		FatalCodes:     c.FatalProgramCodes,
	}
}

// LookupCacheTTL returns the staleness tolerance of the lookup cache.
func (c *Config) LookupCacheTTL() time.Duration {
	return time.Duration(c.LookupCacheTTLSec) * time.Second
}
