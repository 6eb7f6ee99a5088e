// Package rules resolves symbol quantization rules from exchange metadata,
// with a refresh-interval cache.
package rules

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladder/internal/domain"
	"go.uber.org/zap"
)

// DefaultRefreshInterval bounds how often the full metadata is re-fetched.
const DefaultRefreshInterval = 10 * time.Minute

type metadataSource interface {
	SymbolRules(ctx context.Context, symbol string) (domain.SymbolRules, error)
}

type cacheEntry struct {
	rules     domain.SymbolRules
	fetchedAt time.Time
}

// Resolver serves SymbolRules from cache, re-fetching when the cached entry
// is older than the refresh interval. A failed refresh falls back to the
// stale entry: rules are quantization aids, staleness is tolerated. Only
// when no cache exists does a fetch failure surface as ErrRulesUnavailable.
type Resolver struct {
	source   metadataSource
	interval time.Duration
	l        *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry

	// now is swappable for tests
	now func() time.Time
}

// NewResolver creates a resolver with the given refresh interval.
func NewResolver(source metadataSource, interval time.Duration, l *zap.Logger) *Resolver {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Resolver{
		source:   source,
		interval: interval,
		l:        l,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// Rules returns the symbol's quantization rules.
func (r *Resolver) Rules(ctx context.Context, symbol string) (domain.SymbolRules, error) {
	r.mu.Lock()
	entry, cached := r.cache[symbol]
	fresh := cached && r.now().Sub(entry.fetchedAt) < r.interval
	r.mu.Unlock()

	if fresh {
		return entry.rules, nil
	}

	rules, err := r.source.SymbolRules(ctx, symbol)
	if err != nil {
		if cached {
			r.l.Warn("rules refresh failed, serving stale cache",
				zap.String("symbol", symbol),
				zap.Error(err))
			return entry.rules, nil
		}
		return domain.SymbolRules{}, errors.Wrapf(domain.ErrRulesUnavailable, "no cached rules for %s: %v", symbol, err)
	}

	r.mu.Lock()
	r.cache[symbol] = cacheEntry{rules: rules, fetchedAt: r.now()}
	r.mu.Unlock()

	return rules, nil
}
