// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
	"github.com/rovshanmuradov/solana-relay/internal/utils/metrics"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	anchorMaxTries      = 3
	anchorMaxElapsed    = 3 * time.Second
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc          *rpc.Client
	logger       *zap.Logger
	analyzer     *ErrorAnalyzer
	metrics      *metrics.RPC
	pollInterval time.Duration
}

// ErrAccountNotFound - псевдоним, чтобы вызывающие не зависели от адаптера.
var ErrAccountNotFound = blockchain.ErrAccountNotFound

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:          rpc.New(rpcURL),
		logger:       logger.Named("solbc-client"),
		analyzer:     NewErrorAnalyzer(logger),
		pollInterval: defaultPollInterval,
	}
}

// WithPollInterval задаёт интервал опроса статуса подписи.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

// WithMetrics включает метрики задержки RPC.
func (c *Client) WithMetrics(m *metrics.RPC) *Client {
	c.metrics = m
	return c
}

// LatestAnchor получает свежий blockhash. Кратковременные сбои сети повторяются с backoff.
func (c *Client) LatestAnchor(ctx context.Context) (blockchain.Anchor, error) {
	op := func() (blockchain.Anchor, error) {
		start := time.Now()
		result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		c.metrics.RecordRPCLatency("getLatestBlockhash", start, err)
		if err != nil {
			if ctx.Err() != nil {
				return blockchain.Anchor{}, backoff.Permanent(err)
			}
			c.logger.Warn("GetLatestBlockhash failed, retrying", zap.Error(err))
			return blockchain.Anchor{}, err
		}
		if result == nil || result.Value == nil {
			return blockchain.Anchor{}, backoff.Permanent(errors.New("empty blockhash response"))
		}
		return blockchain.Anchor{
			Blockhash:            result.Value.Blockhash,
			LastValidBlockHeight: result.Value.LastValidBlockHeight,
		}, nil
	}

	anchor, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(anchorMaxTries),
		backoff.WithMaxElapsedTime(anchorMaxElapsed),
	)
	if err != nil {
		c.logger.Error("LatestAnchor error", zap.Error(err))
		return blockchain.Anchor{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return anchor, nil
}

// SendRawTransaction отправляет подписанные байты транзакции.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts blockchain.TransactionOptions) (solana.Signature, error) {
	txOpts := rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	}
	if opts.MaxRetries > 0 {
		maxRetries := opts.MaxRetries
		txOpts.MaxRetries = &maxRetries
	}

	start := time.Now()
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, txOpts)
	c.metrics.RecordRPCLatency("sendTransaction", start, err)
	if err != nil {
		c.logger.Error("SendRawTransaction error",
			zap.Error(err),
			zap.Any("analysis", c.analyzer.AnalyzeRPCError(err)))
		return solana.Signature{}, err
	}
	return sig, nil
}

// ConfirmTransaction опрашивает статус подписи, пока транзакция не достигнет
// уровня confirmed, либо пока высота блока не превысит срок действия anchor.
func (c *Client) ConfirmTransaction(ctx context.Context, signature solana.Signature, anchor blockchain.Anchor) (*blockchain.Confirmation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			start := time.Now()
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
			c.metrics.RecordRPCLatency("getSignatureStatuses", start, err)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
				status := statuses.Value[0]
				if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
					status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
					return &blockchain.Confirmation{
						Signature: signature,
						Slot:      status.Slot,
						Err:       status.Err,
					}, nil
				}
				continue
			}

			if anchor.LastValidBlockHeight == 0 {
				continue
			}
			start = time.Now()
			height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
			c.metrics.RecordRPCLatency("getBlockHeight", start, err)
			if err != nil {
				c.logger.Warn("Error getting block height", zap.Error(err))
				continue
			}
			if height > anchor.LastValidBlockHeight {
				return nil, fmt.Errorf("%w: height %d > %d", blockchain.ErrBlockhashExpired, height, anchor.LastValidBlockHeight)
			}
		}
	}
}

// GetTransaction ищет транзакцию в леджере. Отсутствие возвращается как blockchain.ErrNotFound.
func (c *Client) GetTransaction(ctx context.Context, signature solana.Signature) (*blockchain.Record, error) {
	version := uint64(0)
	start := time.Now()
	out, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	c.metrics.RecordRPCLatency("getTransaction", start, ignoreNotFound(err))
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, blockchain.ErrNotFound
		}
		return nil, err
	}
	if out == nil {
		return nil, blockchain.ErrNotFound
	}

	record := &blockchain.Record{
		Signature: signature,
		Slot:      out.Slot,
	}
	if out.BlockTime != nil {
		t := out.BlockTime.Time()
		record.BlockTime = &t
	}
	if out.Meta != nil {
		record.Fee = out.Meta.Fee
		record.Err = out.Meta.Err
	}
	return record, nil
}

// GetAccountData получает сырые данные аккаунта.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	start := time.Now()
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	c.metrics.RecordRPCLatency("getAccountInfo", start, ignoreNotFound(err))
	if err != nil {
		if blockchain.IsAccountNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", account.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil || result.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return result.Value.Data.GetBinary(), nil
}

// ignoreNotFound не считает отсутствие ошибкой RPC.
func ignoreNotFound(err error) error {
	if blockchain.IsAccountNotFound(err) {
		return nil
	}
	return err
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
