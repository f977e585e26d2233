package pricecache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
	"go.uber.org/zap"
)

// Source provides a raw snapshot of price samples.
type Source interface {
	Fetch(ctx context.Context) ([]domain.PriceSample, error)
}

// PriceCache aggregates raw price samples into one latest token per symbol.
// A failed refresh keeps the previous cache intact; concurrent refreshes
// are not coordinated, the last one to complete wins.
type PriceCache struct {
	source Source
	l      *zap.Logger

	mu          sync.RWMutex
	tokens      []domain.Token
	bySymbol    map[string]decimal.Decimal
	lastUpdated time.Time
	attempted   bool
}

// New creates a cache that pulls samples from the given source.
func New(source Source, l *zap.Logger) *PriceCache {
	return &PriceCache{
		source:   source,
		l:        l,
		bySymbol: make(map[string]decimal.Decimal),
	}
}

// Refresh fetches the feed and rebuilds the cache. For each currency the
// sample with the most recent date wins; non-positive prices are dropped
// entirely. On failure the previous cache is retained unchanged and the
// refresh timestamp is not advanced.
func (c *PriceCache) Refresh(ctx context.Context) error {
	samples, err := c.source.Fetch(ctx)
	if err != nil {
		c.mu.Lock()
		c.attempted = true
		c.mu.Unlock()

		return errors.Wrap(err, "refresh price cache")
	}

	tokens := aggregate(samples)

	bySymbol := make(map[string]decimal.Decimal, len(tokens))
	for _, t := range tokens {
		bySymbol[t.Symbol] = t.Price
	}

	c.mu.Lock()
	c.tokens = tokens
	c.bySymbol = bySymbol
	c.lastUpdated = time.Now().UTC()
	c.attempted = true
	c.mu.Unlock()

	c.l.Debug("price cache refreshed", zap.Int("tokens", len(tokens)))

	return nil
}

// aggregate keeps the latest positive sample per lower-cased currency and
// returns tokens sorted by symbol ascending.
func aggregate(samples []domain.PriceSample) []domain.Token {
	best := make(map[string]domain.PriceSample, len(samples))
	for _, s := range samples {
		if !s.Price.IsPositive() {
			continue
		}

		symbol := strings.ToLower(s.Currency)
		if prev, ok := best[symbol]; ok && !s.Date.After(prev.Date) {
			continue
		}
		s.Currency = symbol
		best[symbol] = s
	}

	tokens := make([]domain.Token, 0, len(best))
	for symbol, s := range best {
		tokens = append(tokens, domain.Token{
			Symbol: symbol,
			Name:   strings.ToUpper(symbol),
			Price:  s.Price,
		})
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })

	return tokens
}

// Price returns the cached price for the symbol (case-insensitive).
func (c *PriceCache) Price(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.bySymbol[strings.ToLower(symbol)]
	return price, ok
}

// Tokens returns a copy of the cached tokens, sorted by symbol.
func (c *PriceCache) Tokens() []domain.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// LastUpdated returns the time of the last successful refresh, zero if none.
func (c *PriceCache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdated
}

// Loading reports whether no refresh has completed yet. A refresh that
// failed clears this flag too: the cache is then empty but settled, as
// opposed to "data still on its way".
func (c *PriceCache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.attempted
}
