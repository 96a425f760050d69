// cmd/relay/root.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/solana-relay/internal/config"
	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/relay"
	"github.com/rovshanmuradov/solana-relay/internal/submit"
	"github.com/rovshanmuradov/solana-relay/internal/utils/logger"
)

// globalFlags переопределяют значения конфигурации для одной команды.
type globalFlags struct {
	configFile string
	tier       string
	ceilingSOL float64
	maxRetries int
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Reliable Solana transaction submission",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(os.Stdout)
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to the config file (env SOLANA_RELAY_* also applies)")
	rootCmd.PersistentFlags().StringVar(&flags.tier, "tier", "", "fee tier: min, dynamic, high, ultra")
	rootCmd.PersistentFlags().Float64Var(&flags.ceilingSOL, "ceiling", 0, "fee ceiling in SOL (0 = config value)")
	rootCmd.PersistentFlags().IntVar(&flags.maxRetries, "max-retries", 0, "maximum attempts (0 = config value)")

	rootCmd.AddCommand(
		newMemoCmd(flags),
		newTransferCmd(flags),
		newCheckCmd(flags),
		newBatchCmd(flags),
		newAuthCmd(flags),
	)
	return rootCmd
}

// session - всё, что нужно команде: runner, логгер и параметры отправки.
type session struct {
	runner *relay.Runner
	logger *logger.Logger
	exec   submit.ExecutionConfig
}

// withSession loads config, builds the logger and runner and runs fn with a
// context cancelled on SIGINT/SIGTERM.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, s *session) error) error {
	cfg, err := config.LoadConfig(flags.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
		_ = log.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := relay.NewRunner(ctx, cfg, log.Logger)
	if err != nil {
		log.LogError("Failed to initialize runner", err)
		return err
	}
	defer func() {
		if err := runner.Close(context.Background()); err != nil {
			log.LogError("Shutdown finished with errors", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		runner.ServeMetrics(cfg.MetricsAddr)
	}

	exec, err := flags.apply(runner.Execution())
	if err != nil {
		return err
	}
	return fn(ctx, &session{runner: runner, logger: log, exec: exec})
}

func (f *globalFlags) apply(exec submit.ExecutionConfig) (submit.ExecutionConfig, error) {
	if f.tier != "" {
		tier, err := fee.ParseTier(f.tier)
		if err != nil {
			return exec, err
		}
		exec.FeeTier = tier
	}
	if f.ceilingSOL > 0 {
		exec.FeeCeilingSOL = f.ceilingSOL
	}
	if f.maxRetries > 0 {
		exec.MaxRetries = f.maxRetries
	}
	return exec, nil
}
