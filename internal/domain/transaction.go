package domain

import "time"

// Sentinel token values marking non-swap ledger events in a transaction.
const (
	// TxDeposit in FromToken marks a deposit; the credited amount is ToAmount of ToToken.
	TxDeposit = "add"
	// TxBurn in ToToken marks a removal; the debited amount is FromAmount of FromToken.
	TxBurn = "burn"
)

// TransactionPayload is a completed ledger mutation before it is assigned
// an id and a timestamp by the transaction log.
type TransactionPayload struct {
	FromToken  string `json:"fromToken"`
	ToToken    string `json:"toToken"`
	FromAmount string `json:"fromAmount"`
	ToAmount   string `json:"toAmount"`
}

// Transaction is an immutable history record. Amounts are kept as the
// decimal strings computed at mutation time.
type Transaction struct {
	ID         string    `json:"id"`
	FromToken  string    `json:"fromToken"`
	ToToken    string    `json:"toToken"`
	FromAmount string    `json:"fromAmount"`
	ToAmount   string    `json:"toAmount"`
	Date       time.Time `json:"date"`
}

// IsDeposit reports whether the transaction records a deposit event.
func (t Transaction) IsDeposit() bool { return t.FromToken == TxDeposit }

// IsBurn reports whether the transaction records a burn event.
func (t Transaction) IsBurn() bool { return t.ToToken == TxBurn }

// IsSwap reports whether the transaction records a token-to-token swap.
func (t Transaction) IsSwap() bool { return !t.IsDeposit() && !t.IsBurn() }
