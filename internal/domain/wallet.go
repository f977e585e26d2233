package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrentSnapshotVersion is the schema version written to disk.
const CurrentSnapshotVersion = 1

func init() {
	// balances and prices are plain JSON numbers on the wire, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// WalletEntry is one balance line of the ledger. Symbols are stored
// lower-case and are unique within a wallet.
type WalletEntry struct {
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
}

// WalletSnapshot is the persisted shape of the ledger. Entries keep
// insertion order; the order carries no meaning beyond display.
type WalletSnapshot struct {
	Version     int           `json:"version"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Tokens      []WalletEntry `json:"tokens"`
}

// AssetView is a wallet entry joined with the current price. Not persisted.
type AssetView struct {
	Symbol  string          `json:"symbol"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Price   decimal.Decimal `json:"price"`
	Value   decimal.Decimal `json:"value"`
}
