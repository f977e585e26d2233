package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
)

// BybitSource quotes the configured symbols against USDT using Bybit spot
// tickers.
type BybitSource struct {
	client  *bybit.Client
	symbols []string
}

// NewBybitSource creates a price source for the given symbols.
func NewBybitSource(client *bybit.Client, symbols []string) *BybitSource {
	return &BybitSource{client: client, symbols: symbols}
}

func (s *BybitSource) Fetch(ctx context.Context) ([]domain.PriceSample, error) {
	now := time.Now().UTC()

	samples := make([]domain.PriceSample, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		ticker := bybit.SymbolV5(strings.ToUpper(symbol) + "USDT")

		result, err := s.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   &ticker,
		})
		if err != nil {
			return nil, fmt.Errorf("bybit ticker %s: %w", ticker, err)
		}
		if len(result.Result.Spot.List) == 0 {
			return nil, fmt.Errorf("bybit API returned empty prices for %s", ticker)
		}

		price, err := decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
		if err != nil {
			return nil, fmt.Errorf("bybit ticker %s: bad price %q: %w", ticker, result.Result.Spot.List[0].LastPrice, err)
		}

		samples = append(samples, domain.PriceSample{
			Currency: strings.ToLower(symbol),
			Date:     now,
			Price:    price,
		})
	}

	return samples, nil
}
