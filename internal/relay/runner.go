// internal/relay/runner.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-relay/internal/cache"
	"github.com/rovshanmuradov/solana-relay/internal/config"
	"github.com/rovshanmuradov/solana-relay/internal/fee"
	"github.com/rovshanmuradov/solana-relay/internal/finality"
	"github.com/rovshanmuradov/solana-relay/internal/instructions"
	"github.com/rovshanmuradov/solana-relay/internal/submit"
	"github.com/rovshanmuradov/solana-relay/internal/token"
	"github.com/rovshanmuradov/solana-relay/internal/txbuilder"
	"github.com/rovshanmuradov/solana-relay/internal/utils/metrics"
	"github.com/rovshanmuradov/solana-relay/internal/wallet"
)

const metricsShutdownTimeout = 5 * time.Second

// Runner собирает все компоненты отправки из конфигурации.
type Runner struct {
	cfg          *config.Config
	root         *zap.Logger
	logger       *zap.Logger
	client       *solbc.Client
	pricer       *txbuilder.Pricer
	tables       *txbuilder.TableResolver
	decimals     *token.DecimalsResolver
	checker      *finality.Checker
	orchestrator *submit.Orchestrator
	registry     *prometheus.Registry
	shutdown     *ShutdownHandler
}

// NewRunner wires the RPC client, fee oracle, builders, finality checker and orchestrator.
func NewRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := solbc.NewClient(cfg.RPCURL, logger).WithMetrics(metrics.NewRPC(registry))

	lookup, err := cache.NewLookup(ctx, cfg.LookupCacheTTL(), logger)
	if err != nil {
		return nil, err
	}

	shutdown := NewShutdownHandler(logger, 0)
	shutdown.Add("lookup-cache", lookup)

	checker := finality.NewChecker(client, cfg.Profile(), logger)
	r := &Runner{
		cfg:          cfg,
		root:         logger,
		logger:       logger.Named("runner"),
		client:       client,
		pricer:       txbuilder.NewPricer(fee.NewOracleClient(cfg.FeeOracleURL, logger), fee.DefaultEstimator(), logger),
		tables:       txbuilder.NewTableResolver(client, lookup, logger),
		decimals:     token.NewDecimalsResolver(client, lookup, logger),
		checker:      checker,
		orchestrator: submit.NewOrchestrator(client, checker, submit.NewMetrics(registry), logger),
		registry:     registry,
		shutdown:     shutdown,
	}
	r.logger.Info("Runner initialized",
		zap.String("rpc", cfg.RPCURL),
		zap.String("tier", cfg.FeeTier),
		zap.Int("max_retries", cfg.MaxRetries))
	return r, nil
}

// Wallet возвращает кошелёк из private_key конфигурации.
func (r *Runner) Wallet() (*wallet.Wallet, error) {
	w, err := wallet.NewWallet(r.cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return w, nil
}

// Execution returns the configured execution parameters.
func (r *Runner) Execution() submit.ExecutionConfig {
	return r.cfg.Execution()
}

// builder выбирает форму транзакции: с таблицами адресов - версионную.
func (r *Runner) builder(ixs []solana.Instruction, tables []solana.PublicKey, w *wallet.Wallet) (txbuilder.Builder, error) {
	if len(tables) > 0 {
		return txbuilder.NewVersioned(ixs, tables, w.PrivateKey, r.pricer, r.tables, r.root)
	}
	return txbuilder.NewLegacy(ixs, w.PrivateKey, r.pricer, r.root)
}

// SendMemo submits a memo transaction signed by w.
func (r *Runner) SendMemo(ctx context.Context, w *wallet.Wallet, text string, tables []solana.PublicKey, exec submit.ExecutionConfig) (*submit.Result, error) {
	b, err := r.builder([]solana.Instruction{instructions.Memo(text)}, tables, w)
	if err != nil {
		return nil, err
	}
	return r.orchestrator.Submit(ctx, b, exec)
}

// TransferRequest - перевод токена с удержанием комиссии.
type TransferRequest struct {
	Recipient solana.PublicKey
	Mint      solana.PublicKey
	FeeWallet solana.PublicKey
	Amount    string
	Memo      string
	Tables    []solana.PublicKey
}

// TransferResult - результат отправки и разбиение суммы.
type TransferResult struct {
	*submit.Result
	Split    instructions.Split
	Decimals uint8
}

// Transfer resolves mint decimals, builds the fee-split instructions and submits them.
func (r *Runner) Transfer(ctx context.Context, w *wallet.Wallet, req TransferRequest, exec submit.ExecutionConfig) (*TransferResult, error) {
	decimals, err := r.decimals.Decimals(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	source, err := w.GetATA(req.Mint)
	if err != nil {
		return nil, err
	}

	ixs, split, err := instructions.FeeSplitTransfer{
		Owner:     w.PublicKey,
		Source:    source,
		Recipient: req.Recipient,
		FeeWallet: req.FeeWallet,
		Mint:      req.Mint,
		Decimals:  decimals,
		Amount:    req.Amount,
		Memo:      req.Memo,
	}.Build()
	if err != nil {
		return nil, err
	}
	r.logger.Info("Transfer prepared",
		zap.String("mint", req.Mint.String()),
		zap.Uint64("transfer", split.Transfer),
		zap.Uint64("fee", split.Fee))

	b, err := r.builder(ixs, req.Tables, w)
	if err != nil {
		return nil, err
	}
	res, err := r.orchestrator.Submit(ctx, b, exec)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Result: res, Split: split, Decimals: decimals}, nil
}

// Check runs the full finality profile for a signature; nil means not located.
func (r *Runner) Check(ctx context.Context, signature solana.Signature) *blockchain.Record {
	return r.checker.Check(ctx, signature)
}

// BatchEntry - результат отправки одного кошелька из пакета.
type BatchEntry struct {
	Wallet string
	submit.BatchResult
}

// SendBatch sends one memo per wallet of the CSV file, at most limit in parallel.
// Entries are ordered by wallet name.
func (r *Runner) SendBatch(ctx context.Context, walletsPath, text string, limit int, exec submit.ExecutionConfig) ([]BatchEntry, error) {
	wallets, err := wallet.LoadWallets(walletsPath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(wallets))
	for name := range wallets {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]BatchEntry, len(names))
	jobs := make([]submit.Job, 0, len(names))
	jobIndex := make([]int, 0, len(names))
	for i, name := range names {
		entries[i].Wallet = name
		b, err := r.builder([]solana.Instruction{instructions.Memo(text)}, nil, wallets[name])
		if err != nil {
			entries[i].Err = err
			continue
		}
		jobs = append(jobs, submit.Job{Builder: b, Config: exec})
		jobIndex = append(jobIndex, i)
	}

	r.logger.Info("Starting batch", zap.Int("jobs", len(jobs)), zap.Int("limit", limit))
	for k, res := range r.orchestrator.SubmitAll(ctx, jobs, limit) {
		entries[jobIndex[k]].BatchResult = res
	}
	return entries, nil
}

// MetricsHandler exposes the runner registry.
func (r *Runner) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ServeMetrics starts the metrics endpoint in the background; it is stopped by Close.
func (r *Runner) ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		r.logger.Info("Metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics endpoint failed", zap.Error(err))
		}
	}()

	r.shutdown.AddFunc("metrics-server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Close releases everything the runner owns.
func (r *Runner) Close(ctx context.Context) error {
	r.logger.Info("Runner shutting down")
	return r.shutdown.Shutdown(ctx)
}
