// internal/finality/checker.go
package finality

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
)

// Phase - серия опросов с одинаковым интервалом.
type Phase struct {
	Polls    int
	Interval time.Duration
}

// Profile - упорядоченный список фаз опроса.
type Profile []Phase

// DefaultProfile: 8 × 333ms, 5 × 666ms, 3 × 1666ms, около 15.6s в худшем случае.
var DefaultProfile = Profile{
	{Polls: 8, Interval: 333 * time.Millisecond},
	{Polls: 5, Interval: 666 * time.Millisecond},
	{Polls: 3, Interval: 1666 * time.Millisecond},
}

// Abbreviated returns only the first phase, used for idempotency checks between attempts.
func (p Profile) Abbreviated() Profile {
	if len(p) == 0 {
		return nil
	}
	return Profile{p[0]}
}

// Polls returns the total number of lookups in the profile.
func (p Profile) Polls() int {
	n := 0
	for _, ph := range p {
		n += ph.Polls
	}
	return n
}

// Budget returns the total sleep time of the profile.
func (p Profile) Budget() time.Duration {
	var d time.Duration
	for _, ph := range p {
		d += time.Duration(ph.Polls) * ph.Interval
	}
	return d
}

// Checker answers "has this signature landed?" with bounded retries.
type Checker struct {
	fetcher blockchain.TransactionFetcher
	profile Profile
	logger  *zap.Logger
}

// NewChecker создает Checker. Пустой profile заменяется DefaultProfile.
func NewChecker(fetcher blockchain.TransactionFetcher, profile Profile, logger *zap.Logger) *Checker {
	if len(profile) == 0 {
		profile = DefaultProfile
	}
	return &Checker{
		fetcher: fetcher,
		profile: profile,
		logger:  logger.Named("finality"),
	}
}

// Profile returns the full polling profile.
func (c *Checker) Profile() Profile {
	return c.profile
}

// Check runs the full profile.
func (c *Checker) Check(ctx context.Context, signature solana.Signature) *blockchain.Record {
	return c.CheckWith(ctx, signature, c.profile)
}

// Quick runs the abbreviated profile.
func (c *Checker) Quick(ctx context.Context, signature solana.Signature) *blockchain.Record {
	return c.CheckWith(ctx, signature, c.profile.Abbreviated())
}

// CheckWith sleeps before every lookup and returns the first record found, or nil.
// Lookup errors are logged and treated as "not found yet"; cancellation of ctx ends the
// check early with nil.
func (c *Checker) CheckWith(ctx context.Context, signature solana.Signature, profile Profile) *blockchain.Record {
	sig := signature.String()
	poll := 0
	for phaseIdx, phase := range profile {
		for i := 0; i < phase.Polls; i++ {
			poll++
			if !sleep(ctx, phase.Interval) {
				c.logger.Debug("Finality check interrupted",
					zap.String("signature", sig),
					zap.Int("poll", poll),
					zap.Error(ctx.Err()))
				return nil
			}

			record, err := c.fetcher.GetTransaction(ctx, signature)
			switch {
			case err == nil && record != nil:
				c.logger.Debug("Transaction found",
					zap.String("signature", sig),
					zap.Int("phase", phaseIdx+1),
					zap.Int("poll", poll),
					zap.Uint64("slot", record.Slot))
				return record
			case err == nil, errors.Is(err, blockchain.ErrNotFound):
				// ещё не в леджере
			default:
				c.logger.Warn("Transaction lookup failed",
					zap.String("signature", sig),
					zap.Int("poll", poll),
					zap.Error(err))
			}
		}
	}
	c.logger.Debug("Transaction not found", zap.String("signature", sig), zap.Int("polls", poll))
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
