package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/purse/internal/domain"
)

// BinanceSource quotes the configured symbols against USDT using Binance
// spot tickers. Public endpoints, no API keys required.
type BinanceSource struct {
	client  *binance.Client
	symbols []string
}

// NewBinanceSource creates a price source for the given symbols.
func NewBinanceSource(client *binance.Client, symbols []string) *BinanceSource {
	return &BinanceSource{client: client, symbols: symbols}
}

func (s *BinanceSource) Fetch(ctx context.Context) ([]domain.PriceSample, error) {
	now := time.Now().UTC()

	samples := make([]domain.PriceSample, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		ticker := strings.ToUpper(symbol) + "USDT"

		prices, err := s.client.NewListPricesService().Symbol(ticker).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance ticker %s: %w", ticker, err)
		}
		if len(prices) == 0 {
			return nil, fmt.Errorf("binance API returned empty prices for %s", ticker)
		}

		price, err := decimal.NewFromString(prices[0].Price)
		if err != nil {
			return nil, fmt.Errorf("binance ticker %s: bad price %q: %w", ticker, prices[0].Price, err)
		}

		samples = append(samples, domain.PriceSample{
			Currency: strings.ToLower(symbol),
			Date:     now,
			Price:    price,
		})
	}

	return samples, nil
}
