// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

// DefaultTTL is how stale a cached lookup may be before it is dropped.
const DefaultTTL = 60 * time.Second

// Lookup is a best-effort memoization cache for auxiliary on-chain lookups
// (address lookup tables, mint decimals). Entries may be stale up to TTL and
// are never authoritative; a miss or a broken cache only costs an extra RPC call.
type Lookup struct {
	store  *bigcache.BigCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLookup creates a cache whose entries expire after ttl.
func NewLookup(ctx context.Context, ttl time.Duration, logger *zap.Logger) (*Lookup, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Shards = 64
	cfg.Verbose = false

	store, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &Lookup{
		store:  store,
		ttl:    ttl,
		logger: logger.Named("lookup-cache"),
	}, nil
}

// TTL returns the staleness tolerance of the cache.
func (l *Lookup) TTL() time.Duration {
	if l == nil {
		return 0
	}
	return l.ttl
}

// Get returns a cached value. A nil *Lookup always misses.
func (l *Lookup) Get(key string) ([]byte, bool) {
	if l == nil {
		return nil, false
	}
	v, err := l.store.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			l.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return v, true
}

// Set stores a value; failures are logged and otherwise ignored.
func (l *Lookup) Set(key string, value []byte) {
	if l == nil {
		return
	}
	if err := l.store.Set(key, value); err != nil {
		l.logger.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete drops a key.
func (l *Lookup) Delete(key string) {
	if l == nil {
		return
	}
	_ = l.store.Delete(key)
}

// Close releases the cache's background cleaner.
func (l *Lookup) Close() error {
	if l == nil {
		return nil
	}
	return l.store.Close()
}
