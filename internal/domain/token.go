package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a single raw quote from a price source.
type PriceSample struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
}

// Token is the aggregated view of a currency: the most recent positive
// price seen for it. Rebuilt from scratch on every cache refresh.
type Token struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
